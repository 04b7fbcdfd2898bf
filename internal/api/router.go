package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SponsorRecord is the wire shape of one sponsor slot, independent of the
// concrete sponsor.Store type so internal/api does not need to import
// internal/sponsor.
type SponsorRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ClusterID int    `json:"clusterId"`
	TextureURL string `json:"textureUrl,omitempty"`
}

// SponsorStore is the subset of sponsor.Store behavior the admin REST
// surface needs.
type SponsorStore interface {
	List() []SponsorRecord
	Upsert(rec SponsorRecord) error
	Delete(id string) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game room (required)
	Engine Engine

	// Sponsors is the sponsor CRUD store (required for admin routes)
	Sponsors SponsorStore

	// RateLimiter is an optional pre-configured rate limiter.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	// StaticFilesDir is the directory to serve the admin panel from.
	StaticFilesDir string

	// DisableLogging disables the request logger middleware.
	DisableLogging bool

	// SessionManager protects admin routes when EnableAdminAuth is set.
	SessionManager *SessionManager

	// EnableAdminAuth enables authentication for admin panel routes.
	EnableAdminAuth bool
}

type routerHandlers struct {
	engine   Engine
	sponsors SponsorStore
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - no goroutines, no listeners, no
// background workers - so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{engine: cfg.Engine, sponsors: cfg.Sponsors}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/moon-sponsors", h.handleListSponsors)
		r.Get("/billboard-sponsors", h.handleListSponsors)
		r.Get("/cluster-sponsors", h.handleListSponsors)
	})

	staticDir := cfg.StaticFilesDir
	if staticDir == "" {
		staticDir = "./admin-panel"
	}

	r.Post("/login", handleLoginSubmit(cfg))
	r.Get("/login", handleLoginPage(cfg))
	r.Get("/logout", func(w http.ResponseWriter, req *http.Request) {
		if cfg.SessionManager != nil {
			cfg.SessionManager.HandleLogout(w, req)
		} else {
			http.Redirect(w, req, "/admin/", http.StatusFound)
		}
	})
	r.Get("/api/auth/status", func(w http.ResponseWriter, req *http.Request) {
		if cfg.SessionManager != nil {
			cfg.SessionManager.HandleAuthStatus(w, req)
		} else {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"authenticated":true,"message":"auth disabled"}`))
		}
	})

	adminAPI := func(r chi.Router) {
		r.Get("/moon-sponsors", h.handleListSponsors)
		r.Put("/moon-sponsors/{id}", h.handleUpsertSponsor)
		r.Delete("/moon-sponsors/{id}", h.handleDeleteSponsor)
		r.Get("/billboard-sponsors", h.handleListSponsors)
		r.Put("/billboard-sponsors/{id}", h.handleUpsertSponsor)
		r.Delete("/billboard-sponsors/{id}", h.handleDeleteSponsor)
		r.Get("/cluster-sponsors", h.handleListSponsors)
		r.Put("/cluster-sponsors/{id}", h.handleUpsertSponsor)
		r.Delete("/cluster-sponsors/{id}", h.handleDeleteSponsor)
	}

	if cfg.EnableAdminAuth && cfg.SessionManager != nil {
		r.Group(func(r chi.Router) {
			r.Use(cfg.SessionManager.AdminAuthMiddleware)
			r.Handle("/admin/*", http.StripPrefix("/admin/", http.FileServer(http.Dir(staticDir))))
			r.Get("/admin", func(w http.ResponseWriter, req *http.Request) {
				http.Redirect(w, req, "/admin/", http.StatusMovedPermanently)
			})
		})
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(cfg.SessionManager.AdminAuthMiddleware)
			adminAPI(r)
		})
	} else {
		r.Handle("/admin/*", http.StripPrefix("/admin/", http.FileServer(http.Dir(staticDir))))
		r.Get("/admin", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/admin/", http.StatusMovedPermanently)
		})
		r.Route("/api/admin", adminAPI)
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/admin/", http.StatusFound)
	})

	return r
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not ready")
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *routerHandlers) handleListSponsors(w http.ResponseWriter, r *http.Request) {
	if h.sponsors == nil {
		writeJSON(w, http.StatusOK, []SponsorRecord{})
		return
	}
	writeJSON(w, http.StatusOK, h.sponsors.List())
}

func (h *routerHandlers) handleUpsertSponsor(w http.ResponseWriter, r *http.Request) {
	if h.sponsors == nil {
		writeError(w, http.StatusServiceUnavailable, "sponsor store not configured")
		return
	}
	var rec SponsorRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	rec.ID = chi.URLParam(r, "id")
	if err := h.sponsors.Upsert(rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *routerHandlers) handleDeleteSponsor(w http.ResponseWriter, r *http.Request) {
	if h.sponsors == nil {
		writeError(w, http.StatusServiceUnavailable, "sponsor store not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.sponsors.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleLoginSubmit(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.SessionManager == nil {
			writeError(w, http.StatusServiceUnavailable, "auth not configured")
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		sessionID, err := cfg.SessionManager.CreateSession(req.Username, req.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		cfg.SessionManager.SetSessionCookie(w, sessionID)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// handleLoginPage returns the login page handler.
func handleLoginPage(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.SessionManager != nil {
			if session := cfg.SessionManager.ValidateSession(r); session != nil {
				http.Redirect(w, r, "/admin/", http.StatusFound)
				return
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(loginPageHTML))
	}
}

const loginPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Tank Arena - Admin Login</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 50%, #0f3460 100%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #fff;
        }
        .login-container {
            background: rgba(255, 255, 255, 0.05);
            backdrop-filter: blur(10px);
            border-radius: 20px;
            padding: 40px;
            width: 100%;
            max-width: 400px;
            border: 1px solid rgba(255, 255, 255, 0.1);
        }
        .logo { text-align: center; margin-bottom: 30px; }
        .logo h1 {
            font-size: 2.2rem;
            background: linear-gradient(135deg, #4ecdc4, #44a08d);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
            background-clip: text;
        }
        input {
            width: 100%;
            padding: 12px;
            margin-bottom: 12px;
            border-radius: 8px;
            border: 1px solid rgba(255,255,255,0.2);
            background: rgba(255,255,255,0.08);
            color: #fff;
        }
        .login-btn {
            width: 100%;
            padding: 14px;
            background: linear-gradient(135deg, #4ecdc4, #44a08d);
            color: #000;
            border: none;
            border-radius: 10px;
            font-weight: 600;
            cursor: pointer;
        }
        .error-msg {
            background: rgba(255, 82, 82, 0.2);
            color: #ff5252;
            padding: 10px;
            border-radius: 8px;
            margin-bottom: 16px;
            text-align: center;
            display: none;
        }
    </style>
</head>
<body>
    <div class="login-container">
        <div class="logo"><h1>Tank Arena</h1><p>Admin Console</p></div>
        <div id="error" class="error-msg"></div>
        <form id="loginForm">
            <input type="text" id="username" placeholder="Username" autocomplete="username">
            <input type="password" id="password" placeholder="Password" autocomplete="current-password">
            <button class="login-btn" type="submit">Sign in</button>
        </form>
    </div>
    <script>
        document.getElementById('loginForm').addEventListener('submit', async function(e) {
            e.preventDefault();
            const res = await fetch('/login', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({
                    username: document.getElementById('username').value,
                    password: document.getElementById('password').value,
                }),
            });
            if (res.ok) {
                window.location.href = '/admin/';
            } else {
                const err = document.getElementById('error');
                err.textContent = 'Invalid credentials';
                err.style.display = 'block';
            }
        });
    </script>
</body>
</html>
`

// GetRateLimiterFromRouter is a helper to extract the rate limiter from a
// configured router, for tests that need to verify rate limiting behavior.
func GetRateLimiterFromRouter(cfg RouterConfig) *IPRateLimiter {
	if cfg.RateLimiter != nil {
		return cfg.RateLimiter
	}
	rateLimitCfg := DefaultRateLimitConfig
	if cfg.RateLimitConfig != nil {
		rateLimitCfg = *cfg.RateLimitConfig
	}
	return NewIPRateLimiter(rateLimitCfg)
}
