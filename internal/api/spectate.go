package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"loothound/internal/app"
	"loothound/internal/game"

	"github.com/gorilla/websocket"
)

const (
	// MaxWatchConnections is the total spectator socket cap.
	MaxWatchConnections = 100

	// MaxWatchConnectionsPerIP is the spectator socket cap per client IP.
	MaxWatchConnectionsPerIP = 4

	// watchInterval is how often each spectator receives a state frame.
	watchInterval = time.Second

	// watchWriteTimeout bounds one frame write so a stalled client cannot
	// block the broadcast round.
	watchWriteTimeout = 5 * time.Second
)

// StateSource is the slice of the application the spectator feed reads.
type StateSource interface {
	// FindMap returns one map by id (may be nil)
	FindMap(id string) *game.Map
	// StateByMap copies the observable state of a map's session
	StateByMap(mapID string) (app.StateView, error)
}

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The feed only ever runs on the loopback debug listener, so any
	// origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// watchClient is one spectator socket pinned to a map.
type watchClient struct {
	conn  *websocket.Conn
	ip    string
	mapID string
}

// WatchHub fans live session state out to spectator sockets. Every client
// subscribes to one map and receives that session's state JSON once per
// second - the same shape the state endpoint serves, without a player token.
type WatchHub struct {
	source StateSource

	mu      sync.RWMutex
	clients map[*websocket.Conn]*watchClient

	limiter *WebSocketRateLimiter
}

// NewWatchHub creates a hub reading state from source.
func NewWatchHub(source StateSource) *WatchHub {
	return &WatchHub{
		source:  source,
		clients: make(map[*websocket.Conn]*watchClient),
		limiter: NewWebSocketRateLimiter(MaxWatchConnectionsPerIP),
	}
}

// Run pushes state frames to every connected spectator until ctx is done.
func (h *WatchHub) Run(ctx context.Context) error {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			h.broadcast()
		}
	}
}

// broadcast sends each subscriber its map's current state. The frame is
// rendered once per map per round, however many spectators share it.
func (h *WatchHub) broadcast() {
	h.mu.RLock()
	subs := make([]*watchClient, 0, len(h.clients))
	for _, c := range h.clients {
		subs = append(subs, c)
	}
	h.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	frames := make(map[string][]byte)
	var dead []*watchClient
	for _, c := range subs {
		frame, ok := frames[c.mapID]
		if !ok {
			view, err := h.source.StateByMap(c.mapID)
			if err != nil {
				dead = append(dead, c)
				continue
			}
			frame, err = json.Marshal(stateToJSON(view))
			if err != nil {
				continue
			}
			frames[c.mapID] = frame
		}

		c.conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			dead = append(dead, c)
			continue
		}
		IncrementWSMessages()
	}

	for _, c := range dead {
		h.drop(c.conn)
	}
}

// HandleWatch upgrades a spectator socket. The map id arrives as ?map=<id>.
func (h *WatchHub) HandleWatch(w http.ResponseWriter, r *http.Request) {
	mapID := r.URL.Query().Get("map")
	if h.source.FindMap(mapID) == nil {
		writeError(w, r, http.StatusNotFound, "mapNotFound", "Map not found")
		return
	}

	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()
	if total >= MaxWatchConnections {
		log.Printf("⚠️ Spectator rejected: total limit reached (%d)", total)
		RecordConnectionRejected("watch_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.limiter.Allow(ip) {
		log.Printf("⚠️ Spectator rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("watch_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.limiter.Release(ip) // give back the slot we reserved
		log.Printf("⚠️ Spectator upgrade failed: %v", err)
		return
	}

	client := &watchClient{conn: conn, ip: ip, mapID: mapID}
	h.mu.Lock()
	h.clients[conn] = client
	count := len(h.clients)
	h.mu.Unlock()

	UpdateWSConnections(count)
	log.Printf("👀 Spectator watching %q from %s (%d total)", mapID, ip, count)

	go h.drainReads(conn)
}

// drainReads consumes client frames until the socket dies, then drops it.
// Spectators have nothing to say; reading only services pings and close.
func (h *WatchHub) drainReads(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drop removes and closes one spectator socket. Safe to call twice.
func (h *WatchHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		h.limiter.Release(client.ip)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()
	UpdateWSConnections(count)
	log.Printf("👀 Spectator disconnected (%d remaining)", count)
}

// closeAll drops every spectator, for shutdown.
func (h *WatchHub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.drop(conn)
	}
}

// ClientCount returns the number of connected spectators.
func (h *WatchHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
