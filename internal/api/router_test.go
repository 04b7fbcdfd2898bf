package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tankarena/server/internal/broadcast"
)

type mockEngine struct{}

func (mockEngine) Join(id, name string, faction int) (WelcomePacket, error) {
	return WelcomePacket{PlayerID: id}, nil
}
func (mockEngine) Leave(id string)                                  {}
func (mockEngine) HandleInput(id string, raw json.RawMessage) error { return nil }
func (mockEngine) Fire(id string, power, turretAngle float64) error { return nil }
func (mockEngine) ChoosePortal(id string, tileIndex int) error      { return nil }
func (mockEngine) SetFaction(id string, faction int) error          { return nil }
func (mockEngine) Tip(fromID, toID string, amount int) bool         { return true }
func (mockEngine) IsCommander(id string) bool                       { return false }
func (mockEngine) Snapshot() broadcast.Snapshot                     { return broadcast.Snapshot{Seq: 7} }
func (mockEngine) PlayerCount() int                                 { return 3 }
func (mockEngine) PlayerName(id string) (string, bool)              { return "Driftwood", true }

type mockSponsorStore struct {
	records map[string]SponsorRecord
}

func newMockSponsorStore() *mockSponsorStore {
	return &mockSponsorStore{records: make(map[string]SponsorRecord)}
}

func (m *mockSponsorStore) List() []SponsorRecord {
	out := make([]SponsorRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}

func (m *mockSponsorStore) Upsert(rec SponsorRecord) error {
	m.records[rec.ID] = rec
	return nil
}

func (m *mockSponsorStore) Delete(id string) error {
	if _, ok := m.records[id]; !ok {
		return httpNotFoundErr{}
	}
	delete(m.records, id)
	return nil
}

type httpNotFoundErr struct{}

func (httpNotFoundErr) Error() string { return "not found" }

func testRouterConfig() RouterConfig {
	return RouterConfig{
		Engine:          mockEngine{},
		Sponsors:        newMockSponsorStore(),
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		DisableLogging:  true,
	}
}

func TestHandleGetState(t *testing.T) {
	router := NewRouter(testRouterConfig())
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var snap broadcast.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Seq != 7 {
		t.Errorf("Seq = %d, want 7", snap.Seq)
	}
}

func TestAdminSponsorCRUDWithoutAuth(t *testing.T) {
	router := NewRouter(testRouterConfig())
	ts := httptest.NewServer(router)
	defer ts.Close()

	body, _ := json.Marshal(SponsorRecord{Name: "Acme Armor", ClusterID: 3})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/admin/cluster-sponsors/acme", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT sponsor: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	listResp, err := http.Get(ts.URL + "/api/cluster-sponsors")
	if err != nil {
		t.Fatalf("GET cluster-sponsors: %v", err)
	}
	defer listResp.Body.Close()
	var list []SponsorRecord
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Acme Armor" {
		t.Fatalf("expected one sponsor named Acme Armor, got %+v", list)
	}

	delReq, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/admin/cluster-sponsors/acme", nil)
	delResp, err := http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatalf("DELETE sponsor: %v", err)
	}
	defer delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", delResp.StatusCode)
	}
}

func TestAdminRoutesRequireAuthWhenEnabled(t *testing.T) {
	cfg := testRouterConfig()
	cfg.SessionManager = NewSessionManager("admin", "hunter2")
	cfg.EnableAdminAuth = true
	router := NewRouter(cfg)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/admin/cluster-sponsors")
	if err != nil {
		t.Fatalf("GET admin sponsors: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatal("expected admin route to reject an unauthenticated request")
	}
}

func TestLoginSubmitRejectsBadCredentials(t *testing.T) {
	cfg := testRouterConfig()
	cfg.SessionManager = NewSessionManager("admin", "hunter2")
	cfg.EnableAdminAuth = true
	router := NewRouter(cfg)
	ts := httptest.NewServer(router)
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := http.Post(ts.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginSubmitAcceptsGoodCredentials(t *testing.T) {
	cfg := testRouterConfig()
	cfg.SessionManager = NewSessionManager("admin", "hunter2")
	cfg.EnableAdminAuth = true
	router := NewRouter(cfg)
	ts := httptest.NewServer(router)
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "hunter2"})
	resp, err := http.Post(ts.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	foundCookie := false
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			foundCookie = true
		}
	}
	if !foundCookie {
		t.Error("expected a session cookie to be set on successful login")
	}
}
