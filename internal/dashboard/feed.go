package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"blossom-cafe/internal/domain"
)

// FeedState is the explicit two-state machine behind the live/polling
// duality: connect moves to Live and suspends polling, disconnect moves to
// Polling with a fixed-interval refresh until reconnection succeeds.
type FeedState int

const (
	FeedPolling FeedState = iota
	FeedLive
)

func (s FeedState) String() string {
	if s == FeedLive {
		return "live"
	}
	return "polling"
}

// feedConn is the slice of *websocket.Conn the feed needs; tests substitute
// their own.
type feedConn interface {
	ReadJSON(v any) error
	Close() error
}

type dialFunc func(ctx context.Context) (feedConn, error)

// Feed owns the notification channel subscription for one dashboard
// session. Exactly one timer exists, owned by whichever state is active:
// Live has none (socket deadlines cover liveness), Polling has the refresh
// ticker.
type Feed struct {
	dial         dialFunc
	pollInterval time.Duration
	onEvent      func(domain.Event)
	refresh      func(context.Context)
	lg           zerolog.Logger

	mu    sync.RWMutex
	state FeedState
}

// NewFeed builds a feed dialing wsURL with the session's bearer token.
func NewFeed(wsURL string, token func() string, pollInterval time.Duration, onEvent func(domain.Event), refresh func(context.Context), lg zerolog.Logger) *Feed {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	f := &Feed{
		pollInterval: pollInterval,
		onEvent:      onEvent,
		refresh:      refresh,
		lg:           lg,
		state:        FeedPolling,
	}
	f.dial = func(ctx context.Context) (feedConn, error) {
		hdr := http.Header{}
		if tok := token(); tok != "" {
			hdr.Set("Authorization", "Bearer "+tok)
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, hdr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return f
}

func (f *Feed) State() FeedState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Feed) setState(s FeedState) {
	f.mu.Lock()
	changed := f.state != s
	f.state = s
	f.mu.Unlock()
	if changed {
		f.lg.Info().Str("action", "feed_state_changed").Str("state", s.String()).Msg("notification feed state changed")
	}
}

// Run drives the state machine until ctx is canceled. Disconnecting the
// feed never cancels an in-flight command; those carry their own contexts.
func (f *Feed) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := f.dial(ctx)
		if err == nil {
			f.setState(FeedLive)
			// Orders may have changed while we were polling; one refresh
			// closes the gap, then events keep the view current.
			f.refresh(ctx)
			f.consume(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		f.setState(FeedPolling)
		if err := f.pollWait(ctx); err != nil {
			return err
		}
	}
}

// consume reads events until the connection drops or ctx ends.
func (f *Feed) consume(ctx context.Context, conn feedConn) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)
	defer conn.Close()

	for {
		var ev domain.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				f.lg.Warn().Str("action", "feed_disconnected").Err(err).Msg("notification channel lost")
			}
			return
		}
		f.onEvent(ev)
	}
}

// pollWait refreshes the view after one poll interval, then returns so Run
// can retry the connection. Reconnect attempts and fallback fetches share
// the same cadence.
func (f *Feed) pollWait(ctx context.Context) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.refresh(ctx)
			return nil
		}
	}
}
