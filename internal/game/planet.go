package game

import (
	"math"
	"math/rand"
	"sort"
)

// Faction identifies one of the three playable factions.
type Faction int

const (
	FactionNone Faction = iota
	FactionRust
	FactionCobalt
	FactionViridian
)

func (f Faction) String() string {
	switch f {
	case FactionRust:
		return "rust"
	case FactionCobalt:
		return "cobalt"
	case FactionViridian:
		return "viridian"
	default:
		return ""
	}
}

// FactionFromString parses a faction name, returning FactionNone on no match.
func FactionFromString(s string) Faction {
	switch s {
	case "rust":
		return FactionRust
	case "cobalt":
		return FactionCobalt
	case "viridian":
		return FactionViridian
	default:
		return FactionNone
	}
}

// vec3 is a minimal 3D vector used only during mesh construction.
type vec3 struct{ x, y, z float64 }

func (v vec3) normalize() vec3 {
	l := math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z)
	if l == 0 {
		return v
	}
	return vec3{v.x / l, v.y / l, v.z / l}
}

func (v vec3) add(o vec3) vec3 { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }

func midpoint(a, b vec3) vec3 {
	return vec3{(a.x + b.x) / 2, (a.y + b.y) / 2, (a.z + b.z) / 2}
}

// toSpherical converts a unit vector to (theta, phi): theta is longitude
// in [-pi, pi], phi is colatitude in [0, pi] (0 = north pole).
func toSpherical(v vec3) (theta, phi float64) {
	phi = math.Acos(clamp(v.y, -1, 1))
	theta = math.Atan2(v.z, v.x)
	return theta, phi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Tile is one cell of the subdivided-icosahedron mesh. Tiles are dual
// vertices of the geodesic sphere: every tile has 6 neighbors except the
// 12 original icosahedron vertices, which keep 5 (the pentagons).
type Tile struct {
	Index      int
	Theta      float64
	Phi        float64
	Neighbors  []int
	IsPentagon bool
	Elevation  float64
	ClusterID  int // -1 until clustering assigns it
}

// Cluster is a bounded contiguous group of tiles, the unit of territorial
// capture.
type Cluster struct {
	ID           int
	TileIndices  []int
	Capacity     int
	OwnerFaction Faction
	SponsorID    string // "" when unsponsored
	Capture      CaptureState
}

// CaptureState is the live tug-of-war state for one cluster.
type CaptureState struct {
	Tics         [3]int     // indexed by Faction-1 (rust=0, cobalt=1, viridian=2)
	Accum        [3]float64 // sub-tic fractional accumulation, not persisted/broadcast
	Capacity     int
	Owner        Faction
	SponsorHold  int // ticks remaining on a sponsor's ownership lock, 0 = none
	lastMomentum [3]float64
}

func ticIndex(f Faction) int { return int(f) - 1 }

// Planet is the fully deterministic world geometry produced by WorldGen.
type Planet struct {
	WorldGenSeed int64
	TerrainSeed  int64
	Subdivision  int
	Radius       float64

	Tiles    []Tile
	Clusters []*Cluster
	Portals  []int // tile indices

	tileToCluster []int
}

// GenerateWorld runs the full deterministic WorldGen pipeline: subdivide the
// icosahedron, cluster tiles, assign portals, and compute terrain elevation.
// Identical (worldGenSeed, terrainSeed, subdivision) inputs always produce a
// byte-identical Planet.
func GenerateWorld(worldGenSeed, terrainSeed int64, subdivision int, radius float64, clusterTarget, portalCount int) *Planet {
	verts, tris := buildIcosphere(subdivision)
	tiles := buildTiles(verts, tris)

	p := &Planet{
		WorldGenSeed: worldGenSeed,
		TerrainSeed:  terrainSeed,
		Subdivision:  subdivision,
		Radius:       radius,
		Tiles:        tiles,
	}

	p.clusterTiles(clusterTarget, rand.New(rand.NewSource(worldGenSeed)))
	p.assignPortals(portalCount, rand.New(rand.NewSource(worldGenSeed^0x5bd1e995)))
	p.computeElevation(rand.New(rand.NewSource(terrainSeed)))

	return p
}

// buildIcosphere builds a subdivided icosahedron and returns its vertex
// positions and triangle index list.
func buildIcosphere(subdivision int) ([]vec3, [][3]int) {
	t := (1.0 + math.Sqrt(5.0)) / 2.0
	base := []vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range base {
		base[i] = base[i].normalize()
	}

	baseTris := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	verts := append([]vec3{}, base...)
	midCache := make(map[[2]int]int)

	getMid := func(a, b int) int {
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		if idx, ok := midCache[key]; ok {
			return idx
		}
		m := midpoint(verts[a], verts[b]).normalize()
		verts = append(verts, m)
		idx := len(verts) - 1
		midCache[key] = idx
		return idx
	}

	tris := baseTris
	for level := 0; level < subdivision; level++ {
		next := make([][3]int, 0, len(tris)*4)
		for _, tri := range tris {
			a, b, c := tri[0], tri[1], tri[2]
			ab := getMid(a, b)
			bc := getMid(b, c)
			ca := getMid(c, a)
			next = append(next,
				[3]int{a, ab, ca},
				[3]int{b, bc, ab},
				[3]int{c, ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		tris = next
	}

	return verts, tris
}

// buildTiles derives per-vertex neighbor adjacency (the mesh dual) and
// spherical coordinates from the triangulated icosphere.
func buildTiles(verts []vec3, tris [][3]int) []Tile {
	neighborSets := make([]map[int]struct{}, len(verts))
	for i := range neighborSets {
		neighborSets[i] = make(map[int]struct{})
	}
	addEdge := func(a, b int) {
		neighborSets[a][b] = struct{}{}
		neighborSets[b][a] = struct{}{}
	}
	for _, tri := range tris {
		addEdge(tri[0], tri[1])
		addEdge(tri[1], tri[2])
		addEdge(tri[2], tri[0])
	}

	tiles := make([]Tile, len(verts))
	for i, v := range verts {
		theta, phi := toSpherical(v)
		neighbors := make([]int, 0, len(neighborSets[i]))
		for n := range neighborSets[i] {
			neighbors = append(neighbors, n)
		}
		sort.Ints(neighbors)
		tiles[i] = Tile{
			Index:      i,
			Theta:      theta,
			Phi:        phi,
			Neighbors:  neighbors,
			IsPentagon: len(neighbors) == 5,
			ClusterID:  -1,
		}
	}
	return tiles
}

// clusterTiles groups tiles into contiguous, capacity-bounded clusters via
// seeded flood-fill, matching spec §4.8 step 2.
func (p *Planet) clusterTiles(target int, rng *rand.Rand) {
	n := len(p.Tiles)
	order := rng.Perm(n)
	visited := make([]bool, n)
	clusterID := 0

	for _, start := range order {
		if visited[start] {
			continue
		}
		queue := []int{start}
		visited[start] = true
		members := make([]int, 0, target)

		for len(queue) > 0 && len(members) < target {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			p.Tiles[cur].ClusterID = clusterID

			neighbors := append([]int{}, p.Tiles[cur].Neighbors...)
			rng.Shuffle(len(neighbors), func(i, j int) {
				neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
			})
			for _, nb := range neighbors {
				if !visited[nb] && len(members)+len(queue) < target {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}

		// Any frontier nodes left unvisited-but-queued beyond target are
		// released back to the pool by simply not having been marked — but
		// since we marked them visited above to avoid duplicate claims,
		// fold them into this cluster too (keeps clusters contiguous).
		for _, nb := range queue {
			p.Tiles[nb].ClusterID = clusterID
			members = append(members, nb)
		}

		capacity := len(members) * 10
		p.Clusters = append(p.Clusters, &Cluster{
			ID:          clusterID,
			TileIndices: members,
			Capacity:    capacity,
			Capture:     CaptureState{Capacity: capacity, Owner: FactionNone},
		})
		clusterID++
	}

	p.tileToCluster = make([]int, n)
	for _, t := range p.Tiles {
		p.tileToCluster[t.Index] = t.ClusterID
	}
}

// assignPortals picks K tiles distributed over the planet via seeded
// farthest-point sampling so every cluster has a reachable portal.
func (p *Planet) assignPortals(count int, rng *rand.Rand) {
	if count <= 0 || len(p.Tiles) == 0 {
		return
	}
	if count > len(p.Tiles) {
		count = len(p.Tiles)
	}

	chosen := make([]int, 0, count)
	used := make(map[int]bool)

	first := rng.Intn(len(p.Tiles))
	chosen = append(chosen, first)
	used[first] = true

	for len(chosen) < count {
		best, bestDist := -1, -1.0
		for i := range p.Tiles {
			if used[i] {
				continue
			}
			minDist := math.MaxFloat64
			for _, c := range chosen {
				d := angularDistance(p.Tiles[i].Theta, p.Tiles[i].Phi, p.Tiles[c].Theta, p.Tiles[c].Phi)
				if d < minDist {
					minDist = d
				}
			}
			if minDist > bestDist {
				bestDist = minDist
				best = i
			}
		}
		if best < 0 {
			break
		}
		chosen = append(chosen, best)
		used[best] = true
	}

	sort.Ints(chosen)
	p.Portals = chosen
}

// angularDistance is a cheap great-circle-ish distance on the unit sphere
// used only for portal spacing, not for gameplay hit-testing.
func angularDistance(t1, p1, t2, p2 float64) float64 {
	dt := math.Abs(t1 - t2)
	dp := p1 - p2
	return dt*math.Sin((p1+p2)/2) + math.Abs(dp)
}

// computeElevation assigns each tile a deterministic pseudo-noise elevation
// in [-1, 1], seeded by the terrain seed.
func (p *Planet) computeElevation(rng *rand.Rand) {
	// Deterministic per-tile hash seeded once; order-independent so the
	// result does not depend on tile iteration order elsewhere.
	octaveSeeds := [3]int64{rng.Int63(), rng.Int63(), rng.Int63()}
	for i := range p.Tiles {
		t := &p.Tiles[i]
		e := 0.0
		amp := 1.0
		freq := 1.0
		for _, seed := range octaveSeeds {
			e += amp * valueNoise(t.Theta*freq, t.Phi*freq, seed)
			amp *= 0.5
			freq *= 2.0
		}
		t.Elevation = clamp(e, -1, 1)
	}
}

// valueNoise is a small deterministic hash-based noise function: no
// external noise library is wired because no pack example imports one and
// this needs only a reproducible pseudo-random field over (theta, phi).
func valueNoise(theta, phi float64, seed int64) float64 {
	ix := int64(math.Floor(theta * 1000))
	iy := int64(math.Floor(phi * 1000))
	h := seed
	h = h*31 + ix
	h = h*31 + iy
	h ^= h >> 15
	h *= 0x2545F4914F6CDD1D
	h ^= h >> 13
	frac := float64(uint64(h)%1000000) / 1000000.0
	return frac*2 - 1
}

// ClusterByID returns the cluster with the given id, or nil if out of range.
func (p *Planet) ClusterByID(id int) *Cluster {
	if id < 0 || id >= len(p.Clusters) {
		return nil
	}
	return p.Clusters[id]
}

// ClusterForTile returns the cluster containing the given tile index, or
// nil if the index is out of range.
func (p *Planet) ClusterForTile(tileIndex int) *Cluster {
	if tileIndex < 0 || tileIndex >= len(p.tileToCluster) {
		return nil
	}
	return p.Clusters[p.tileToCluster[tileIndex]]
}

// ClusterAt returns the cluster containing the given spherical position, by
// nearest tile. Used by presence counting in the capture engine.
func (p *Planet) ClusterAt(theta, phi float64) *Cluster {
	best, bestDist := -1, math.MaxFloat64
	for i := range p.Tiles {
		d := angularDistance(theta, phi, p.Tiles[i].Theta, p.Tiles[i].Phi)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return p.ClusterForTile(best)
}

// WorldDescription is the compact packet sent to joining clients so they
// can reconstruct identical geometry from the seed.
type WorldDescription struct {
	Subdivision int                  `json:"subdivision"`
	WorldSeed   int64                `json:"worldSeed"`
	TerrainSeed int64                `json:"terrainSeed"`
	Clusters    []ClusterDescription `json:"clusters"`
	Portals     []int                `json:"portals"`
}

// ClusterDescription is the wire shape of one cluster in the welcome packet.
type ClusterDescription struct {
	ID          int    `json:"id"`
	TileIndices []int  `json:"tileIndices"`
	Capacity    int    `json:"capacity"`
	SponsorID   string `json:"sponsorId,omitempty"`
}

// Describe builds the world-description packet for the welcome message.
func (p *Planet) Describe() WorldDescription {
	clusters := make([]ClusterDescription, 0, len(p.Clusters))
	for _, c := range p.Clusters {
		clusters = append(clusters, ClusterDescription{
			ID:          c.ID,
			TileIndices: c.TileIndices,
			Capacity:    c.Capacity,
			SponsorID:   c.SponsorID,
		})
	}
	return WorldDescription{
		Subdivision: p.Subdivision,
		WorldSeed:   p.WorldGenSeed,
		TerrainSeed: p.TerrainSeed,
		Clusters:    clusters,
		Portals:     p.Portals,
	}
}
