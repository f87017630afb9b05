// Package gateway fans order lifecycle events out to connected dashboard
// sessions over WebSocket. Events arrive from the orders exchange; the
// gateway holds no per-client state beyond the live connection.
package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"blossom-cafe/internal/domain"
)

// Hub tracks the set of live clients and broadcasts events to all of them.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.Event

	mu      sync.RWMutex
	clients map[*Client]struct{}

	lg zerolog.Logger
}

func NewHub(lg zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.Event, 256),
		clients:    make(map[*Client]struct{}),
		lg:         lg,
	}
}

// Run owns the client set until ctx is canceled, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.lg.Info().Str("action", "client_connected").Str("operator", c.operator).Int("total_clients", n).Msg("dashboard connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.lg.Info().Str("action", "client_disconnected").Str("operator", c.operator).Int("total_clients", n).Msg("dashboard disconnected")

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// Broadcast queues an event for every live client. Delivery is at most
// once: a full hub queue drops the event, dashboards re-sync by polling.
func (h *Hub) Broadcast(ev domain.Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.lg.Warn().Str("action", "broadcast_dropped").Str("event", ev.Type).Msg("broadcast queue full, dropping event")
	}
}

// deliver pushes the event to each client's send queue. A client that
// cannot keep up is dropped rather than allowed to stall the rest.
func (h *Hub) deliver(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			delete(h.clients, c)
			close(c.send)
			h.lg.Warn().Str("action", "client_dropped").Str("operator", c.operator).Msg("slow client dropped")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.lg.Info().Str("action", "hub_stopped").Msg("closed all dashboard connections")
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
