package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player or per-token labels)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_ticks_total",
		Help: "Simulation ticks processed (automatic and manual)",
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_player_count",
		Help: "Current number of players across all sessions",
	})

	lootCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_loot_count",
		Help: "Loot items currently lying on the ground",
	})

	retiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_retired_players_total",
		Help: "Players retired for inactivity",
	})

	// Snapshot metrics
	snapshotSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_saves_total",
		Help: "State snapshots written to disk",
	})

	// Debug render metrics
	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "debug_render_duration_seconds",
		Help:    "Time spent rendering a map view",
		Buckets: []float64{0.005, 0.01, 0.02, 0.033, 0.05, 0.1},
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or connection caps",
	}, []string{"reason"}) // Bounded: "rate_limit", "watch_total_limit", "watch_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// Spectator feed metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently connected spectator sockets",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "State frames pushed to spectators",
	})
)

// DebugConfig configures the loopback debug server.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string // MUST stay on loopback in production

	// Optional basic auth in front of every debug endpoint
	BasicAuthUser string
	BasicAuthPass string

	// Extra handlers mounted on the debug mux (map render, spectator feed)
	Extra map[string]http.Handler
}

// StartDebugServer starts the operator-only server: pprof, Prometheus
// metrics, a health probe and the live map views. It MUST bind to localhost
// only; pprof on a public address is an instant DoS vector.
func StartDebugServer(cfg DebugConfig) {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return
	}

	// SECURITY: refuse non-loopback binds unless explicitly overridden
	if !isLoopbackAddr(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost for security")
		cfg.ListenAddr = "127.0.0.1:6060"
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	for path, handler := range cfg.Extra {
		mux.Handle(path, handler)
	}

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)
		log.Printf("   - render:  http://%s/debug/render?map=<id>", cfg.ListenAddr)
		log.Printf("   - watch:   ws://%s/debug/watch?map=<id>", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()
}

// isLoopbackAddr reports whether addr binds a loopback interface.
func isLoopbackAddr(addr string) bool {
	return strings.HasPrefix(addr, "127.0.0.1:") ||
		strings.HasPrefix(addr, "localhost:") ||
		strings.HasPrefix(addr, "[::1]:")
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records one finished simulation step
func RecordTick(duration time.Duration) {
	ticksTotal.Inc()
	tickDuration.Observe(duration.Seconds())
}

// RecordRender records map render timing
func RecordRender(duration time.Duration) {
	renderDuration.Observe(duration.Seconds())
}

// UpdatePlayerCount updates the player gauge
func UpdatePlayerCount(count int) {
	playerCount.Set(float64(count))
}

// UpdateLootCount updates the ground loot gauge
func UpdateLootCount(count int) {
	lootCount.Set(float64(count))
}

// RecordRetirement counts one player leaving for the leaderboard
func RecordRetirement() {
	retiredTotal.Inc()
}

// RecordSnapshotSave counts one state file write
func RecordSnapshotSave() {
	snapshotSaves.Inc()
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "watch_total_limit", "watch_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates the spectator connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments the pushed frame counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
