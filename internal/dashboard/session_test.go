package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom-cafe/internal/common/config"
	"blossom-cafe/internal/domain"
	"blossom-cafe/internal/payment"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) Notify(level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, level+": "+message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestSession(t *testing.T, handler http.Handler) (*Session, *recordingNotifier) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	notifier := &recordingNotifier{}
	s := NewSession(config.Dashboard{
		APIBaseURL:   srv.URL,
		WSURL:        "ws://unused",
		PollInterval: time.Second,
		FetchTimeout: 200 * time.Millisecond,
		CacheTTL:     5 * time.Second,
	}, notifier, zerolog.Nop())
	return s, notifier
}

func paidOrder(id int64, status domain.Status) domain.Order {
	o := mkOrder(id, status, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	o.TotalAmount = 10
	o.PaymentStatus = domain.PaymentCompleted
	o.Payments = []domain.OrderPayment{{OrderID: id, Method: domain.MethodCard, Amount: 10}}
	return o
}

func TestTakeChargeRequiresPayment(t *testing.T) {
	var hits int
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))

	unpaid := mkOrder(1, domain.StatusPending, time.Now())
	unpaid.TotalAmount = 10
	s.store.Merge(unpaid)

	err := s.TakeCharge(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrPaymentRequired)
	assert.Zero(t, hits, "unpaid orders never reach the API")

	// the local copy is untouched
	got, _ := s.store.Get(1)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestTakeChargePaidOrder(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/1/status", r.URL.Path)
		var req struct {
			Status  domain.Status `json:"status"`
			Version int64         `json:"version"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, domain.StatusPreparing, req.Status)
		assert.EqualValues(t, 1, req.Version)

		out := paidOrder(1, domain.StatusPreparing)
		out.Version = 2
		_ = json.NewEncoder(w).Encode(out)
	}))

	s.store.Merge(paidOrder(1, domain.StatusPending))
	require.NoError(t, s.TakeCharge(context.Background(), 1))

	got, _ := s.store.Get(1)
	assert.Equal(t, domain.StatusPreparing, got.Status)
	assert.EqualValues(t, 2, got.Version, "the server copy wins locally")
}

func TestTransitionConflictRefreshes(t *testing.T) {
	serverCopy := paidOrder(1, domain.StatusPreparing)
	serverCopy.Version = 3

	s, notifier := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/orders/1/status":
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "order was modified concurrently"})
		case r.URL.Path == "/orders":
			_ = json.NewEncoder(w).Encode([]domain.Order{serverCopy})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))

	stale := paidOrder(1, domain.StatusPreparing)
	stale.Version = 1
	s.store.Merge(stale)

	err := s.MarkReady(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrConflict)

	// the conflict forced a re-fetch; the retry would carry version 3
	got, _ := s.store.Get(1)
	assert.EqualValues(t, 3, got.Version)
	assert.Equal(t, 1, notifier.count(), "conflict is surfaced as a toast")
}

func TestRefreshKeepsLastGoodViewOnTimeout(t *testing.T) {
	var slow bool
	s, notifier := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow {
			time.Sleep(500 * time.Millisecond)
			return
		}
		_ = json.NewEncoder(w).Encode([]domain.Order{paidOrder(1, domain.StatusPending)})
	}))

	s.refresh(context.Background())
	require.Equal(t, 1, s.store.Len())

	slow = true
	s.cache.Invalidate()
	s.refresh(context.Background())

	assert.Equal(t, 1, s.store.Len(), "a failed fetch never clears the board")
	require.Equal(t, 1, notifier.count())
	assert.Contains(t, notifier.calls[0], "warn:", "timeouts surface as warnings, not errors")
}

func TestHandleEvent(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Order{})
	}))

	t.Run("created event adds the order", func(t *testing.T) {
		raw, _ := json.Marshal(paidOrder(5, domain.StatusPending))
		s.handleEvent(domain.Event{Type: domain.EventOrderCreated, Data: raw})
		_, ok := s.store.Get(5)
		assert.True(t, ok)
	})

	t.Run("status change applies to known orders", func(t *testing.T) {
		raw, _ := json.Marshal(domain.StatusChange{OrderID: 5, Status: domain.StatusPreparing})
		s.handleEvent(domain.Event{Type: domain.EventOrderStatusChanged, Data: raw})
		got, _ := s.store.Get(5)
		assert.Equal(t, domain.StatusPreparing, got.Status)
	})

	t.Run("status change for unknown order is a no-op", func(t *testing.T) {
		before := s.store.Len()
		raw, _ := json.Marshal(domain.StatusChange{OrderID: 404, Status: domain.StatusReady})
		s.handleEvent(domain.Event{Type: domain.EventOrderStatusChanged, Data: raw})
		assert.Equal(t, before, s.store.Len())
	})

	t.Run("malformed payload is ignored", func(t *testing.T) {
		before := s.store.Len()
		s.handleEvent(domain.Event{Type: domain.EventOrderCreated, Data: []byte(`{"id": "not a number"}`)})
		assert.Equal(t, before, s.store.Len())
	})

	t.Run("unknown event type is ignored", func(t *testing.T) {
		s.handleEvent(domain.Event{Type: "order:exploded", Data: []byte(`{}`)})
	})
}

func TestPayMergesServerCopy(t *testing.T) {
	s, notifier := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/1/payments", r.URL.Path)
		out := paidOrder(1, domain.StatusPending)
		out.Version = 2
		_ = json.NewEncoder(w).Encode(out)
	}))

	unpaid := mkOrder(1, domain.StatusPending, time.Now())
	unpaid.TotalAmount = 10
	s.store.Merge(unpaid)

	err := s.Pay(context.Background(), 1, []payment.Entry{{Method: domain.MethodCard, Amount: 10}})
	require.NoError(t, err)

	got, _ := s.store.Get(1)
	assert.Equal(t, domain.PaymentCompleted, got.PaymentStatus)
	require.Equal(t, 1, notifier.count())
	assert.Contains(t, notifier.calls[0], "payment recorded")
}
