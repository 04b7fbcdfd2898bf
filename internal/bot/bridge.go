package bot

import (
	"log"
	"time"

	"github.com/tankarena/server/internal/game"
)

// MaxMissedTicks is how many consecutive ticks a worker may fail to
// respond before the bridge restarts it.
const MaxMissedTicks = 5

// entry tracks one bot's worker and health counters.
type entry struct {
	worker    *Worker
	faction   game.Faction
	seed      int64
	missed    int
	lastTheta float64
	lastPhi   float64
}

// Bridge owns every bot worker goroutine in a room and drives them each
// tick, restarting any worker that misses too many ticks in a row using
// its original seed so the restarted bot's wander pattern stays
// deterministic from the caller's point of view.
type Bridge struct {
	cfg     game.BotConfig
	bots    map[string]*entry
	restarts int
}

// NewBridge constructs a bridge with the given bot tuning.
func NewBridge(cfg game.BotConfig) *Bridge {
	return &Bridge{cfg: cfg, bots: make(map[string]*entry)}
}

// Spawn starts a new bot worker.
func (b *Bridge) Spawn(id string, faction game.Faction, theta, phi float64, seed int64) {
	w := NewWorker(id, faction, theta, phi, b.cfg, seed)
	go w.Run()
	b.bots[id] = &entry{worker: w, faction: faction, seed: seed, lastTheta: theta, lastPhi: phi}
}

// Remove stops and forgets a bot worker.
func (b *Bridge) Remove(id string) {
	if e, ok := b.bots[id]; ok {
		close(e.worker.In)
		delete(b.bots, id)
	}
}

// Dispatch sends this tick's input to every bot worker, non-blocking: a
// worker still processing the previous tick has its input send skipped,
// counting toward its missed-tick total.
func (b *Bridge) Dispatch(tick uint64, inputs map[string]Input) {
	for id, e := range b.bots {
		in, ok := inputs[id]
		if !ok {
			continue
		}
		select {
		case e.worker.In <- in:
		default:
			e.missed++
			if e.missed >= MaxMissedTicks {
				b.restart(id, e)
			}
		}
	}
}

// Collect drains whatever outputs are ready without blocking, resetting
// the missed-tick counter for any bot that responded.
func (b *Bridge) Collect(timeout time.Duration) map[string]Output {
	deadline := time.Now().Add(timeout)
	results := make(map[string]Output, len(b.bots))
	for id, e := range b.bots {
		select {
		case out := <-e.worker.Out:
			e.missed = 0
			e.lastTheta, e.lastPhi = out.Self[0], out.Self[1]
			results[id] = out
		default:
			remaining := time.Until(deadline)
			if remaining <= 0 {
				continue
			}
			select {
			case out := <-e.worker.Out:
				e.missed = 0
				e.lastTheta, e.lastPhi = out.Self[0], out.Self[1]
				results[id] = out
			case <-time.After(remaining):
			}
		}
	}
	return results
}

// restart kills the stalled worker and replaces it with a fresh one seeded
// identically, resuming from the bot's last known position.
func (b *Bridge) restart(id string, e *entry) {
	log.Printf("bot %s: missed %d ticks, restarting worker", id, e.missed)
	close(e.worker.In)
	w := NewWorker(id, e.faction, e.lastTheta, e.lastPhi, b.cfg, e.seed)
	go w.Run()
	e.worker = w
	e.missed = 0
	b.restarts++
}

// RestartCount returns the total number of worker restarts since startup,
// exposed for observability.
func (b *Bridge) RestartCount() int { return b.restarts }
