package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom-cafe/internal/domain"
)

type fakeConn struct {
	events    chan domain.Event
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan domain.Event, 8), closed: make(chan struct{})}
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case ev := <-c.events:
		*(v.(*domain.Event)) = ev
		return nil
	case <-c.closed:
		return errors.New("use of closed network connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func newTestFeed(dial dialFunc, onEvent func(domain.Event), refreshed *atomic.Int32) *Feed {
	return &Feed{
		dial:         dial,
		pollInterval: 20 * time.Millisecond,
		onEvent:      onEvent,
		refresh:      func(context.Context) { refreshed.Add(1) },
		lg:           zerolog.Nop(),
		state:        FeedPolling,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestFeedGoesLiveAndDeliversEvents(t *testing.T) {
	conn := newFakeConn()
	var refreshed atomic.Int32
	received := make(chan domain.Event, 8)

	f := newTestFeed(
		func(context.Context) (feedConn, error) { return conn, nil },
		func(ev domain.Event) { received <- ev },
		&refreshed,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	waitFor(t, func() bool { return f.State() == FeedLive }, "feed should go live")
	waitFor(t, func() bool { return refreshed.Load() >= 1 }, "going live triggers one refresh")

	raw, _ := json.Marshal(domain.StatusChange{OrderID: 1, Status: domain.StatusReady})
	conn.events <- domain.Event{Type: domain.EventOrderStatusChanged, Data: raw}

	select {
	case ev := <-received:
		assert.Equal(t, domain.EventOrderStatusChanged, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestFeedFallsBackToPolling(t *testing.T) {
	var dials atomic.Int32
	var refreshed atomic.Int32
	first := newFakeConn()

	f := newTestFeed(
		func(context.Context) (feedConn, error) {
			if dials.Add(1) == 1 {
				return first, nil
			}
			return nil, errors.New("connection refused")
		},
		func(domain.Event) {},
		&refreshed,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	waitFor(t, func() bool { return f.State() == FeedLive }, "feed should go live first")

	// server drops the connection
	_ = first.Close()

	waitFor(t, func() bool { return f.State() == FeedPolling }, "feed should fall back to polling")
	before := refreshed.Load()
	waitFor(t, func() bool { return refreshed.Load() > before }, "polling keeps refreshing")
	waitFor(t, func() bool { return dials.Load() >= 3 }, "feed keeps retrying the connection")
}

func TestFeedStartsPollingWhenGatewayDown(t *testing.T) {
	var refreshed atomic.Int32
	f := newTestFeed(
		func(context.Context) (feedConn, error) { return nil, errors.New("connection refused") },
		func(domain.Event) {},
		&refreshed,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	assert.Equal(t, FeedPolling, f.State())
	waitFor(t, func() bool { return refreshed.Load() >= 2 }, "polling refresh keeps ticking")
	assert.Equal(t, FeedPolling, f.State())
}

func TestFeedStateString(t *testing.T) {
	assert.Equal(t, "polling", FeedPolling.String())
	assert.Equal(t, "live", FeedLive.String())
}
