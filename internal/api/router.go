package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"loothound/internal/app"
	"loothound/internal/game"
	"loothound/internal/records"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// GameInterface defines the application methods used by the API.
// This interface enables mocking for tests without spinning up the full
// simulation loop. Keep this minimal - only what the handlers actually call.
type GameInterface interface {
	// Join creates a player on a map and returns its credentials
	Join(userName, mapID string) (app.JoinResult, error)
	// Authorize reports whether a live player holds the token
	Authorize(token string) error
	// Players lists everyone in the token holder's session
	Players(token string) ([]app.PlayerInfo, error)
	// State copies the observable state of the token holder's session
	State(token string) (app.StateView, error)
	// Move points the token holder's dog, or stops it
	Move(token string, dir game.Direction, stop bool) error
	// ManualTick advances the world when the automatic clock is off
	ManualTick(delta time.Duration) error
	// ManualTickEnabled reports whether clients drive the clock
	ManualTickEnabled() bool
	// Maps returns the immutable map set in load order
	Maps() []*game.Map
	// FindMap returns one map by id (may be nil)
	FindMap(id string) *game.Map
}

// RecordsInterface is the slice of the record store the API reads.
type RecordsInterface interface {
	// Page returns one leaderboard page ordered by the retirement index
	Page(ctx context.Context, start, maxItems int) ([]records.Record, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Game:    mockGame,
//	    Records: mockRecords,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Game is the simulation facade (required)
	Game GameInterface

	// Records serves the leaderboard. Nil means no database is configured;
	// the records endpoint then reports an internal error.
	Records RecordsInterface

	// Static serves every path outside /api. If nil, files come from the
	// "static" directory.
	Static http.Handler

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default development origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies for the router.
type routerHandlers struct {
	game    GameInterface
	records RecordsInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects beyond the
// rate limiter's cleanup goroutine when one is created here:
//   - No network listeners are opened
//   - No background simulation is started
//
// This makes it safe to use in tests with httptest.NewServer.
//
// Example:
//
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/v1/maps")
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Use(RequestMetrics)

	h := &routerHandlers{
		game:    cfg.Game,
		records: cfg.Records,
	}

	static := cfg.Static
	if static == nil {
		static = NewStaticHandler("static")
	}

	// Fallback handlers must be installed before Route: chi copies them
	// into the subrouter when it mounts.
	r.NotFound(static.ServeHTTP)
	r.MethodNotAllowed(methodNotAllowed(r))

	r.Route("/api", func(api chi.Router) {
		// Anything under /api that no route claims is a client error, not
		// a file lookup.
		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusBadRequest, "badRequest", "Invalid request")
		})

		api.Get("/v1/maps", h.handleMaps)
		api.Head("/v1/maps", h.handleMaps)
		api.Get("/v1/maps/{id}", h.handleMapByID)
		api.Head("/v1/maps/{id}", h.handleMapByID)

		api.Post("/v1/game/join", h.handleJoin)
		api.Get("/v1/game/players", h.handlePlayers)
		api.Head("/v1/game/players", h.handlePlayers)
		api.Get("/v1/game/state", h.handleState)
		api.Head("/v1/game/state", h.handleState)
		api.Post("/v1/game/player/action", h.handleAction)
		api.Post("/v1/game/tick", h.handleTick)

		api.Get("/v1/game/records", h.handleRecords)
		api.Head("/v1/game/records", h.handleRecords)
	})

	return r
}

// methodNotAllowed builds the 405 handler. It probes the router for every
// method the path does accept and advertises them in the Allow header.
func methodNotAllowed(mux *chi.Mux) http.HandlerFunc {
	probes := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		allowed := make([]string, 0, 3)
		for _, method := range probes {
			rctx := chi.NewRouteContext()
			if mux.Match(rctx, method, r.URL.Path) {
				allowed = append(allowed, method)
			}
		}
		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
		}
		writeError(w, r, http.StatusMethodNotAllowed, "invalidMethod", "Invalid method")
	}
}

// RequestMetrics records latency and outcome for every request under the
// route pattern that served it, keeping label cardinality bounded.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "static"
		}
		RecordRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}
