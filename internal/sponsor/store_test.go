package sponsor

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
)

func tinyPNGBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test PNG: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "sponsors.json"), filepath.Join(dir, "textures"), "/sponsor-textures")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestAssignSlotBakesImageAndPersists(t *testing.T) {
	s := newTestStore(t)

	reloaded := make(chan struct{}, 1)
	s.SetReloadHook(func() { reloaded <- struct{}{} })

	sp, err := s.AssignSlot(KindBillboard, 2, Sponsor{Name: "Acme Armor", PatternImage: tinyPNGBase64(t)})
	if err != nil {
		t.Fatalf("AssignSlot: %v", err)
	}
	if sp.PatternImage != "" {
		t.Error("returned sponsor should not carry the raw base64 payload")
	}
	if sp.PatternURL == "" {
		t.Error("expected a baked PatternURL")
	}
	if sp.ID != "billboard-2" {
		t.Errorf("ID = %q, want billboard-2", sp.ID)
	}

	select {
	case <-reloaded:
	default:
		t.Error("expected reload hook to fire")
	}

	slots := s.ListSlots(KindBillboard)
	if len(slots) != BillboardSlots {
		t.Fatalf("ListSlots length = %d, want %d", len(slots), BillboardSlots)
	}
	if slots[2] == nil || slots[2].Name != "Acme Armor" {
		t.Fatalf("slot 2 not persisted correctly: %+v", slots[2])
	}
}

func TestAssignSlotRejectsOutOfRange(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AssignSlot(KindMoon, MoonSlots, Sponsor{Name: "x"}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestClearSlotOnEmptyFails(t *testing.T) {
	s := newTestStore(t)
	if err := s.ClearSlot(KindMoon, 0); err == nil {
		t.Fatal("expected error clearing an already-empty slot")
	}
}

func TestClusterSponsorLifecycle(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AssignCluster(7, Sponsor{Name: "Orbital Fuels"}); err != nil {
		t.Fatalf("AssignCluster: %v", err)
	}

	all := s.ListClusterSponsors()
	got, ok := all[7]
	if !ok || got.Name != "Orbital Fuels" {
		t.Fatalf("cluster 7 not assigned: %+v", all)
	}

	if err := s.ClearCluster(7); err != nil {
		t.Fatalf("ClearCluster: %v", err)
	}
	if err := s.ClearCluster(7); err == nil {
		t.Fatal("expected error clearing an already-empty cluster assignment")
	}
}

func TestStoreReloadAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "sponsors.json")
	imgDir := filepath.Join(dir, "textures")

	s1, err := NewStore(jsonPath, imgDir, "/sponsor-textures")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := s1.AssignSlot(KindMoon, 0, Sponsor{Name: "Moonshot Capital"}); err != nil {
		t.Fatalf("AssignSlot: %v", err)
	}

	s2, err := NewStore(jsonPath, imgDir, "/sponsor-textures")
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	slots := s2.ListSlots(KindMoon)
	if slots[0] == nil || slots[0].Name != "Moonshot Capital" {
		t.Fatalf("expected persisted assignment to survive reload, got %+v", slots[0])
	}
}
