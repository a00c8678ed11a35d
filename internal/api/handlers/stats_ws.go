package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tablescout/tablescout/internal/cache"
	"github.com/tablescout/tablescout/internal/logger"
	"github.com/tablescout/tablescout/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// How often stats snapshots are broadcast
	statsInterval = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware handles origin checks
		return true
	},
}

// StatsMessage is a message pushed to live stats clients.
type StatsMessage struct {
	Type    string      `json:"type"` // "stats", "ping"
	Payload interface{} `json:"payload,omitempty"`
}

// StatsSnapshot is the periodic payload: per-cache counters plus spend for
// the current day.
type StatsSnapshot struct {
	Timestamp       time.Time             `json:"timestamp"`
	Caches          map[string]CacheStats `json:"caches"`
	SpendCentsToday float64               `json:"spend_cents_today"`
}

// statsClient is one connected live stats consumer.
type statsClient struct {
	hub  *StatsHub
	conn *websocket.Conn
	send chan []byte
}

// StatsHub broadcasts cache and cost snapshots to connected WebSocket
// clients.
type StatsHub struct {
	clients    map[*statsClient]bool
	register   chan *statsClient
	unregister chan *statsClient

	caches map[string]*cache.Synced
	costs  CostReader // may be nil

	mu sync.RWMutex
}

// NewStatsHub creates a stats hub over the given caches and optional cost
// log.
func NewStatsHub(caches map[string]*cache.Synced, costs CostReader) *StatsHub {
	return &StatsHub{
		clients:    make(map[*statsClient]bool),
		register:   make(chan *statsClient),
		unregister: make(chan *statsClient),
		caches:     caches,
		costs:      costs,
	}
}

// Run drives the hub until ctx is canceled, broadcasting a snapshot on every
// tick while clients are connected.
func (h *StatsHub) Run(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
				metrics.WebSocketConnections.Dec()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("Live stats client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebSocketConnections.Dec()
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Live stats client disconnected", "total_clients", total)

		case <-ticker.C:
			h.mu.RLock()
			clientCount := len(h.clients)
			h.mu.RUnlock()
			if clientCount == 0 {
				continue
			}
			h.broadcastSnapshot(ctx)
		}
	}
}

// broadcastSnapshot sends the current stats to every connected client,
// dropping clients whose send buffer is full.
func (h *StatsHub) broadcastSnapshot(ctx context.Context) {
	msg, err := json.Marshal(StatsMessage{Type: "stats", Payload: h.snapshot(ctx)})
	if err != nil {
		logger.Error("Failed to marshal stats snapshot", "error", err)
		return
	}

	h.mu.Lock()
	for client := range h.clients {
		select {
		case client.send <- msg:
			metrics.WebSocketMessagesSent.Inc()
		default:
			close(client.send)
			delete(h.clients, client)
			metrics.WebSocketConnections.Dec()
		}
	}
	h.mu.Unlock()
}

// snapshot assembles the current cache counters and today's spend.
func (h *StatsHub) snapshot(ctx context.Context) StatsSnapshot {
	snap := StatsSnapshot{
		Timestamp: time.Now().UTC(),
		Caches:    make(map[string]CacheStats, len(h.caches)),
	}
	for name, c := range h.caches {
		m := c.Stats()
		snap.Caches[name] = CacheStats{
			Hits:    m.Hits,
			Misses:  m.Misses,
			HitRate: m.HitRate(),
			Entries: c.Size(),
		}
	}
	if h.costs != nil {
		midnight := time.Now().UTC().Truncate(24 * time.Hour)
		if total, err := h.costs.TotalCostCents(ctx, midnight); err == nil {
			snap.SpendCentsToday = total
		} else {
			logger.Warn("Failed to read today's spend for stats broadcast", "error", err)
		}
	}
	return snap
}

// ServeWS handles GET /api/stats/live, upgrading to a WebSocket that streams
// stats snapshots.
func (h *StatsHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &statsClient{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound messages and detects disconnects.
func (c *statsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards broadcasts to the peer and keeps the connection alive
// with pings.
func (c *statsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
