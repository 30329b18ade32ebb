// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

// Package websocket implements the live pulse hub: a single fan-out
// point pushing readership-hit and heartbeat frames to every connected
// map viewer. Delivery is strictly best effort; a slow or broken
// subscriber is dropped, never retried, and never affects the others
// or the ingestion path that published the frame.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mwangaza-press/geopulse/internal/config"
	"github.com/mwangaza-press/geopulse/internal/logging"
	"github.com/mwangaza-press/geopulse/internal/metrics"
	"github.com/mwangaza-press/geopulse/internal/models"
)

// ShutdownReason identifies why the hub stopped, for log filtering.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub maintains the set of active pulse subscribers and broadcasts
// frames to them. It holds no persistence and no replay buffer: a
// subscriber sees only what is published while it is connected.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan models.PulseFrame
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	heartbeatInterval time.Duration
	clientBuffer      int
}

// NewHub creates a hub. The caller owns the reference and passes it to
// the ingest handler and the upgrade handler; there is no package-level
// instance.
func NewHub(cfg config.WebSocketConfig) *Hub {
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	buffer := cfg.ClientBuffer
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		clients:           make(map[*Client]bool),
		broadcast:         make(chan models.PulseFrame, 256),
		Register:          make(chan *Client),
		Unregister:        make(chan *Client),
		heartbeatInterval: heartbeat,
		clientBuffer:      buffer,
	}
}

// RunWithContext runs the hub loop until the context is canceled, then
// closes every client and returns ctx.Err(). Designed for suture
// supervision: a restart starts from an empty client set.
//
// Selection is priority ordered so behavior stays deterministic when
// several channels are ready: shutdown first, then client lifecycle,
// then broadcasts and the heartbeat tick.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		// Priority 1: shutdown (non-blocking check).
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle (non-blocking check).
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: broadcasts and the heartbeat (blocking).
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case frame := <-h.broadcast:
			h.broadcastToClients(frame)

		case <-ticker.C:
			h.broadcastToClients(models.HeartbeatFrame())
			metrics.WSBroadcasts.WithLabelValues(models.FrameTypeHeartbeat).Inc()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnectedClients.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("pulse client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnectedClients.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("pulse client disconnected")
}

// broadcastToClients fans one frame out to every subscriber. Clients
// are iterated in ID order so delivery order is reproducible. A client
// whose send buffer is full is removed on the spot; publishing never
// blocks on a slow reader.
func (h *Hub) broadcastToClients(frame models.PulseFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- frame:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSDroppedClients.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("dropping pulse client with full send buffer")
	}
	if len(toRemove) > 0 {
		metrics.WSConnectedClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}

	logging.Info().
		Str("component", "pulse-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("pulse hub stopped")
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnectedClients.Set(0)
}

// BroadcastHit publishes a READERSHIP_HIT frame for a freshly ingested
// event. Fire and forget: if the hub's queue is full the frame is
// dropped and the caller is never told, by contract.
func (h *Hub) BroadcastHit(e *models.ReadershipEvent) {
	frame := models.HitFrame(e)
	select {
	case h.broadcast <- frame:
		metrics.WSBroadcasts.WithLabelValues(models.FrameTypeReadershipHit).Inc()
	default:
		logging.Warn().Msg("broadcast queue full, dropping readership hit frame")
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
