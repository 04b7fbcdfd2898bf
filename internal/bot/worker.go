// Package bot runs tank AI on isolated goroutines, communicating with the
// game room exclusively over channels so a panicking or wedged AI routine
// can never corrupt shared tick-loop state.
package bot

import (
	"log"

	"github.com/tankarena/server/internal/game"
)

// Input and Output are aliases for the packed numeric buffer the room
// exchanges with a worker (stride 6: theta, phi, heading, speed,
// turretAngle, hp), so Bridge satisfies game.BotDispatcher without a
// translation layer.
type Input = game.BotWorkerInput
type Output = game.BotWorkerOutput

// Worker runs one bot's AI loop on its own goroutine.
type Worker struct {
	ID   string
	In   chan Input
	Out  chan Output
	Done chan struct{}

	state *game.BotState
	cfg   game.BotConfig
	seed  int64
}

// NewWorker constructs (but does not start) a worker for the given bot.
func NewWorker(id string, faction game.Faction, theta, phi float64, cfg game.BotConfig, seed int64) *Worker {
	return &Worker{
		ID:    id,
		In:    make(chan Input, 1),
		Out:   make(chan Output, 1),
		Done:  make(chan struct{}),
		state: game.NewBot(id, faction, theta, phi, cfg, seed),
		cfg:   cfg,
		seed:  seed,
	}
}

// Run is the worker goroutine's body: drain one Input, compute one Step,
// emit one Output, repeat until In is closed.
func (w *Worker) Run() {
	defer close(w.Done)
	for in := range w.In {
		out := w.step(in)
		select {
		case w.Out <- out:
		default:
			// Bridge didn't collect last tick's output in time; drop this
			// one rather than block the AI loop.
			log.Printf("bot %s: output channel full, dropping tick %d", w.ID, in.Tick)
		}
	}
}

func (w *Worker) step(in Input) Output {
	w.state.Theta = in.Self[0]
	w.state.Phi = in.Self[1]
	w.state.Heading = in.Self[2]
	w.state.Speed = in.Self[3]
	w.state.TurretAngle = in.Self[4]
	w.state.HP = in.Self[5]
	w.state.IsDead = in.IsDead
	w.state.CurrentClusterID = in.ClusterID
	w.state.WanderTheta = in.GoalTheta
	w.state.WanderPhi = in.GoalPhi

	w.state.FindTarget(in.Nearby, w.cfg)
	wantsFire := w.state.Step(1.0/20.0, w.cfg)

	return Output{
		Tick: in.Tick,
		Self: [bufferStride]float64{
			w.state.Theta, w.state.Phi, w.state.Heading,
			w.state.Speed, w.state.TurretAngle, w.state.HP,
		},
		WantsFire: wantsFire,
		TargetID:  w.state.TargetID,
	}
}
