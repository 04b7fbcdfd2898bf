package spatial

// TileGraph is the minimal view of the planet mesh a flow field needs: each
// tile's neighbor list and spherical position. internal/game.Planet
// satisfies this via a small adapter in room.go.
type TileGraph interface {
	TileCount() int
	NeighborsOf(tile int) []int
	PositionOf(tile int) (theta, phi float64)
}

// TileFlowField provides O(1) per-bot navigation toward a goal tile via a
// precomputed field over the planet's tile adjacency graph, generalizing
// the teacher's regular-grid flow field (BFS integration + gradient
// descent) to the icosphere tile mesh: every bot heading to the same
// portal or cluster shares one BFS instead of running its own search.
type TileFlowField struct {
	graph       TileGraph
	goal        int
	integration []int32 // BFS hop-distance to goal, -1 if unreached
	nextHop     []int32 // next tile index to step to, -1 at goal/unreached
}

// NewTileFlowField computes a flow field toward the given goal tile.
func NewTileFlowField(graph TileGraph, goal int) *TileFlowField {
	n := graph.TileCount()
	f := &TileFlowField{
		graph:       graph,
		goal:        goal,
		integration: make([]int32, n),
		nextHop:     make([]int32, n),
	}
	for i := range f.integration {
		f.integration[i] = -1
		f.nextHop[i] = -1
	}
	if goal < 0 || goal >= n {
		return f
	}

	f.integration[goal] = 0
	queue := make([]int, 0, n)
	queue = append(queue, goal)
	head := 0
	for head < len(queue) {
		cur := queue[head]
		head++
		for _, nb := range graph.NeighborsOf(cur) {
			if f.integration[nb] != -1 {
				continue
			}
			f.integration[nb] = f.integration[cur] + 1
			f.nextHop[nb] = int32(cur)
			queue = append(queue, nb)
		}
	}
	return f
}

// NextHop returns the next tile to move toward from the given tile, or -1
// if the tile cannot reach the goal (disconnected mesh, should not happen
// on a generated planet).
func (f *TileFlowField) NextHop(tile int) int {
	if tile < 0 || tile >= len(f.nextHop) {
		return -1
	}
	return int(f.nextHop[tile])
}

// Distance returns the hop-distance from the given tile to the goal, or -1
// if unreached.
func (f *TileFlowField) Distance(tile int) int {
	if tile < 0 || tile >= len(f.integration) {
		return -1
	}
	return int(f.integration[tile])
}

// Direction returns the heading (theta, phi delta toward next hop) from the
// given tile, used by bot AI to steer toward its current goal (portal or
// contested cluster) without running per-bot pathfinding.
func (f *TileFlowField) Direction(tile int) (destTheta, destPhi float64, ok bool) {
	next := f.NextHop(tile)
	if next < 0 {
		return 0, 0, false
	}
	theta, phi := f.graph.PositionOf(next)
	return theta, phi, true
}

// Goal returns the tile this field steers toward.
func (f *TileFlowField) Goal() int { return f.goal }

// FlowFieldManager caches one TileFlowField per goal tile so multiple bots
// converging on the same portal or contested cluster share a single BFS.
type FlowFieldManager struct {
	graph  TileGraph
	fields map[int]*TileFlowField
}

// NewFlowFieldManager creates a manager bound to a fixed tile graph.
func NewFlowFieldManager(graph TileGraph) *FlowFieldManager {
	return &FlowFieldManager{graph: graph, fields: make(map[int]*TileFlowField)}
}

// GetOrCreate returns the cached flow field for a goal tile, computing it
// on first use.
func (m *FlowFieldManager) GetOrCreate(goal int) *TileFlowField {
	if f, ok := m.fields[goal]; ok {
		return f
	}
	f := NewTileFlowField(m.graph, goal)
	m.fields[goal] = f
	return f
}

// Invalidate drops a cached field, forcing recomputation on next use; call
// when the mesh's passability changes (not expected post-worldgen, but kept
// for parity with a live-reloadable planet).
func (m *FlowFieldManager) Invalidate(goal int) {
	delete(m.fields, goal)
}

// Clear removes all cached fields.
func (m *FlowFieldManager) Clear() {
	m.fields = make(map[int]*TileFlowField)
}
