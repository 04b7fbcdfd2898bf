package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server combines the HTTP router with the websocket hub for real-time
// game-state delivery.
type Server struct {
	engine      Engine
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	wsLimiter   *WebSocketRateLimiter
	tickRate    int
}

// NewServer creates an API server bound to a game engine and sponsor store.
//
// IMPORTANT: background workers do NOT start until Start() is called, so
// tests can construct a Server and use Router() without goroutines running.
func NewServer(engine Engine, sponsors SponsorStore, sessionMgr *SessionManager, enableAuth bool, tickRate int) *Server {
	s := &Server{
		engine:      engine,
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		wsLimiter:   NewWebSocketRateLimiter(8),
		tickRate:    tickRate,
	}

	s.hub = NewHub(engine, s.wsLimiter)

	s.router = NewRouter(RouterConfig{
		Engine:          engine,
		Sponsors:        sponsors,
		RateLimiter:     s.rateLimiter,
		SessionManager:  sessionMgr,
		EnableAdminAuth: enableAuth,
	})
	s.router.Get("/ws", s.hub.HandleWebSocket)

	return s
}

// Start begins the HTTP listener and the hub's background goroutines. Call
// once; to stop, signal the process and call Stop for cleanup.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	interval := time.Second / time.Duration(s.tickRate)
	s.hub.StartBroadcastLoop(interval)

	log.Printf("api server listening on %s", addr)
	log.Printf("admin panel: http://localhost%s/admin", addr)

	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler, for use with httptest.NewServer in tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the server's websocket hub, so callers that construct the
// engine separately (main.go's room wiring, the sponsor reload hook) can
// reach it for event broadcasting.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
