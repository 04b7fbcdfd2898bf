package game

import "testing"

func TestGenerateWorldIsDeterministicForSameSeeds(t *testing.T) {
	a := GenerateWorld(1, 2, 1, 1000.0, 8, 4)
	b := GenerateWorld(1, 2, 1, 1000.0, 8, 4)

	if len(a.Tiles) != len(b.Tiles) {
		t.Fatalf("tile count differs: %d vs %d", len(a.Tiles), len(b.Tiles))
	}
	for i := range a.Tiles {
		if a.Tiles[i].Theta != b.Tiles[i].Theta || a.Tiles[i].Phi != b.Tiles[i].Phi {
			t.Fatalf("tile %d position differs between identical-seed runs", i)
		}
		if a.Tiles[i].ClusterID != b.Tiles[i].ClusterID {
			t.Fatalf("tile %d cluster assignment differs between identical-seed runs", i)
		}
	}
	if len(a.Clusters) != len(b.Clusters) {
		t.Fatalf("cluster count differs: %d vs %d", len(a.Clusters), len(b.Clusters))
	}
	if len(a.Portals) != len(b.Portals) {
		t.Fatalf("portal count differs: %d vs %d", len(a.Portals), len(b.Portals))
	}
	for i := range a.Portals {
		if a.Portals[i] != b.Portals[i] {
			t.Fatalf("portal %d differs between identical-seed runs: %d vs %d", i, a.Portals[i], b.Portals[i])
		}
	}
}

func TestGenerateWorldDiffersWithDifferentWorldGenSeed(t *testing.T) {
	a := GenerateWorld(1, 2, 2, 1000.0, 8, 4)
	b := GenerateWorld(99, 2, 2, 1000.0, 8, 4)

	samePortals := len(a.Portals) == len(b.Portals)
	if samePortals {
		for i := range a.Portals {
			if a.Portals[i] != b.Portals[i] {
				samePortals = false
				break
			}
		}
	}
	if samePortals {
		t.Error("different worldGenSeed should change portal selection (extremely unlikely collision)")
	}
}

func TestClusterCapacityReflectsTileCount(t *testing.T) {
	p := GenerateWorld(1, 2, 2, 1000.0, 10, 4)
	for _, c := range p.Clusters {
		if c.Capacity <= 0 {
			t.Errorf("cluster %d capacity = %d, want > 0", c.ID, c.Capacity)
		}
		if len(c.TileIndices) == 0 {
			t.Errorf("cluster %d has no tiles", c.ID)
		}
	}
}

func TestDescribeListsEveryCluster(t *testing.T) {
	p := GenerateWorld(1, 2, 1, 1000.0, 8, 4)
	desc := p.Describe()
	if len(desc.Clusters) != len(p.Clusters) {
		t.Errorf("Describe cluster count = %d, want %d", len(desc.Clusters), len(p.Clusters))
	}
}
