package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom-cafe/internal/domain"
)

func setupHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = h.Run(ctx) }()
	return h
}

func testClient(buffer int) *Client {
	return &Client{
		send:     make(chan domain.Event, buffer),
		operator: "marie",
		lg:       zerolog.Nop(),
	}
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n },
		2*time.Second, 5*time.Millisecond, "expected %d clients", n)
}

func TestHubRegisterUnregister(t *testing.T) {
	h := setupHub(t)

	c := testClient(8)
	h.register <- c
	waitForClients(t, h, 1)

	h.unregister <- c
	waitForClients(t, h, 0)

	_, open := <-c.send
	assert.False(t, open, "unregister closes the send channel")
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := setupHub(t)

	a := testClient(8)
	b := testClient(8)
	h.register <- a
	h.register <- b
	waitForClients(t, h, 2)

	h.Broadcast(domain.Event{Type: domain.EventOrderCreated})

	for _, c := range []*Client{a, b} {
		select {
		case ev := <-c.send:
			assert.Equal(t, domain.EventOrderCreated, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("client never received the broadcast")
		}
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := setupHub(t)

	slow := testClient(1)
	fast := testClient(8)
	h.register <- slow
	h.register <- fast
	waitForClients(t, h, 2)

	// the slow client's queue holds one event; the second overflows it
	h.Broadcast(domain.Event{Type: domain.EventOrderUpdated})
	h.Broadcast(domain.Event{Type: domain.EventOrderUpdated})
	waitForClients(t, h, 1)

	assert.Equal(t, 1, h.ClientCount())
	select {
	case <-fast.send:
	case <-time.After(2 * time.Second):
		t.Fatal("fast client starved by slow one")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	c := testClient(8)
	h.register <- c
	waitForClients(t, h, 1)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	_, open := <-c.send
	assert.False(t, open, "shutdown closes every client")
	assert.Equal(t, 0, h.ClientCount())
}
