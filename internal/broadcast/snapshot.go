// Package broadcast builds and serves the delta-encoded world snapshots
// sent to every connected client each tick.
package broadcast

import "sync/atomic"

// TankSnapshot is one tank's wire state, using the short one-letter keys
// the client decoder expects. Keyed by tank id in Snapshot.Players, so the
// id itself is not repeated in the value.
type TankSnapshot struct {
	T   float64 `json:"t"`          // theta
	P   float64 `json:"p"`          // phi
	H   float64 `json:"h"`          // heading
	S   float64 `json:"s"`          // speed
	Ta  float64 `json:"ta"`         // turret angle
	Hp  float64 `json:"hp"`
	D   int     `json:"d"`          // 0 alive, 1 dead, 2 waiting for portal
	F   int     `json:"f"`          // faction
	R   string  `json:"r"`          // rank
	Seq uint32  `json:"seq,omitempty"`
}

// ProjectileSnapshot is one in-flight shot's wire state.
type ProjectileSnapshot struct {
	ID string  `json:"id"`
	T  float64 `json:"t"`
	P  float64 `json:"p"`
}

// ClusterSnapshot is one cluster's territory wire state.
type ClusterSnapshot struct {
	ID int `json:"id"`
	F  int `json:"f"`  // owning faction, 0 = none
	Pr int `json:"pr"` // progress/tics of the currently-leading faction
	Ma int `json:"ma"` // momentum sign, -1/0/1
	Sa int `json:"sa"` // sponsor-associated, 1/0
}

// Snapshot is the full per-tick broadcast payload. Field names and the
// short JSON keys (t,p,h,s,ta,hp,d,f,r,seq,pr,ma,sa,bg) match the wire
// contract every client decoder expects.
type Snapshot struct {
	Seq         uint64                  `json:"seq"`
	Players     map[string]TankSnapshot `json:"players"`
	Projectiles []ProjectileSnapshot    `json:"projectiles"`
	Clusters    []ClusterSnapshot       `json:"clusters,omitempty"`
	Bg          map[string]TankSnapshot `json:"bg,omitempty"` // bodyguard tank states, same shape as players
	Pr          float64                 `json:"pr"`           // planet rotation, radians
	Ma          []float64               `json:"ma,omitempty"` // moon orbital angles
	Sa          []float64               `json:"sa,omitempty"` // space-station orbital parameters
}

// Pool is a lock-free triple-buffered snapshot pool: the tick loop advances
// to the next buffer slot every Acquire and publishes it by storing the
// read index, giving every slot a full two-tick grace period before reuse.
// Ported from the teacher's game_snapshot.go AcquireWrite/PublishWrite
// pattern.
type Pool struct {
	buffers  [3]Snapshot
	writeIdx uint32
	readIdx  uint32
	sequence uint64
}

// NewPool constructs an empty snapshot pool.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire returns the next buffer slot for the writer to populate this
// tick, round-robining monotonically so a slot is never reused until two
// further Acquire calls have passed.
func (p *Pool) Acquire() *Snapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	return &p.buffers[idx]
}

// Publish marks the buffer most recently returned by Acquire as the
// current readable snapshot, stamping it with the next sequence number.
func (p *Pool) Publish(snap *Snapshot) {
	seq := atomic.AddUint64(&p.sequence, 1)
	snap.Seq = seq
	for i := range p.buffers {
		if &p.buffers[i] == snap {
			atomic.StoreUint32(&p.readIdx, uint32(i))
			break
		}
	}
}

// Latest returns the most recently published snapshot, safe to call
// concurrently with the writer.
func (p *Pool) Latest() Snapshot {
	idx := atomic.LoadUint32(&p.readIdx)
	return p.buffers[idx]
}
