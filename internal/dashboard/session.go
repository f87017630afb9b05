package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"blossom-cafe/internal/common/config"
	"blossom-cafe/internal/domain"
	"blossom-cafe/internal/payment"
)

// Notifier surfaces failures to the operator as transient notifications.
// The dashboard never turns an error into a crash or silently swallows it.
type Notifier interface {
	Notify(level, message string)
}

// LogNotifier is the headless-mode notifier: toasts become log lines.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(level, message string) {
	ev := n.Log.Info()
	if level == "error" {
		ev = n.Log.Error()
	}
	ev.Str("action", "toast").Str("toast_level", level).Msg(message)
}

// Session owns all dashboard state: the local order view, the read cache,
// the API client and the notification feed. Nothing here is global; a
// process can run several sessions side by side.
type Session struct {
	client   *Client
	store    *Store
	cache    *Cache
	feed     *Feed
	notifier Notifier
	lg       zerolog.Logger
	now      func() time.Time

	username string
	password string
}

func NewSession(cfg config.Dashboard, notifier Notifier, lg zerolog.Logger) *Session {
	s := &Session{
		client:   NewClient(cfg.APIBaseURL, cfg.FetchTimeout),
		store:    NewStore(),
		cache:    NewCache(cfg.CacheTTL),
		notifier: notifier,
		lg:       lg,
		now:      time.Now,
		username: cfg.Username,
		password: cfg.Password,
	}
	s.feed = NewFeed(cfg.WSURL, s.client.Token, cfg.PollInterval, s.handleEvent, s.refresh, lg)
	return s
}

// Run authenticates, loads the initial board and drives the feed until ctx
// is canceled. An authentication failure is fatal for the session.
func (s *Session) Run(ctx context.Context) error {
	if err := s.client.Login(ctx, s.username, s.password); err != nil {
		return err
	}
	s.refresh(ctx)
	return s.feed.Run(ctx)
}

// Orders returns the board in display order.
func (s *Session) Orders() []domain.Order {
	return s.store.Snapshot()
}

// Elapsed is the ticket timer for one order, frozen once the order is done.
func (s *Session) Elapsed(o *domain.Order) time.Duration {
	return ElapsedTime(o, s.now())
}

func (s *Session) FeedState() FeedState {
	return s.feed.State()
}

// TakeCharge moves a pending order into preparation. For unpaid orders it
// does not transition; it reports ErrPaymentRequired so the caller opens
// the payment workflow first.
func (s *Session) TakeCharge(ctx context.Context, id int64) error {
	o, ok := s.store.Get(id)
	if !ok {
		return domain.ErrOrderNotFound
	}
	if !payment.IsPaid(&o) {
		return domain.ErrPaymentRequired
	}
	return s.transition(ctx, id, domain.StatusPreparing)
}

func (s *Session) MarkReady(ctx context.Context, id int64) error {
	return s.transition(ctx, id, domain.StatusReady)
}

func (s *Session) MarkServed(ctx context.Context, id int64) error {
	return s.transition(ctx, id, domain.StatusServed)
}

func (s *Session) Cancel(ctx context.Context, id int64) error {
	return s.transition(ctx, id, domain.StatusCancelled)
}

// Pay submits a payment batch, then lets the caller retry take-charge.
func (s *Session) Pay(ctx context.Context, id int64, entries []payment.Entry) error {
	o, ok := s.store.Get(id)
	if !ok {
		return domain.ErrOrderNotFound
	}
	updated, err := s.client.SubmitPayments(ctx, o.ID, entries)
	if err != nil {
		s.surface(err)
		return err
	}
	s.cache.Invalidate()
	s.store.Merge(*updated)
	s.notifier.Notify("info", "payment recorded for "+updated.Number)
	return nil
}

func (s *Session) transition(ctx context.Context, id int64, target domain.Status) error {
	o, ok := s.store.Get(id)
	if !ok {
		return domain.ErrOrderNotFound
	}
	updated, err := s.client.UpdateStatus(ctx, o.ID, target, o.Version)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Somebody else changed the order; re-fetch so the retry
			// carries a current version.
			s.cache.Invalidate()
			s.refresh(ctx)
		}
		s.surface(err)
		return err
	}
	s.cache.Invalidate()
	s.store.Merge(*updated)
	return nil
}

// refresh re-fetches the board through the read cache. On failure the last
// known-good view stays in place and the error is surfaced as a toast.
func (s *Session) refresh(ctx context.Context) {
	orders, err := s.cache.Get(ctx, s.client.ListOrders)
	if err != nil {
		s.surface(err)
		return
	}
	s.store.ReplaceAll(orders)
}

// handleEvent applies one notification-channel event to the local view.
func (s *Session) handleEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventOrderCreated, domain.EventOrderUpdated:
		var o domain.Order
		if err := json.Unmarshal(ev.Data, &o); err != nil {
			s.lg.Warn().Str("action", "event_decode_failed").Str("event", ev.Type).Err(err).Msg("ignoring malformed event")
			return
		}
		s.cache.Invalidate()
		s.store.Merge(o)

	case domain.EventOrderStatusChanged:
		var ch domain.StatusChange
		if err := json.Unmarshal(ev.Data, &ch); err != nil {
			s.lg.Warn().Str("action", "event_decode_failed").Str("event", ev.Type).Err(err).Msg("ignoring malformed event")
			return
		}
		s.cache.Invalidate()
		if !s.store.ApplyStatusChange(ch) {
			// An order we have never seen; the next order:updated or
			// refresh will bring it in.
			s.lg.Debug().Str("action", "status_for_unknown_order").Int64("order_id", ch.OrderID).Msg("ignoring status for unknown order")
		}

	case domain.EventOrdersRefresh:
		s.cache.Invalidate()
		s.refresh(context.Background())

	default:
		s.lg.Debug().Str("action", "unknown_event").Str("event", ev.Type).Msg("ignoring unknown event type")
	}
}

func (s *Session) surface(err error) {
	level := "error"
	var ve *domain.ValidationError
	var te *domain.TimeoutError
	if errors.As(err, &ve) || errors.As(err, &te) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrPaymentRequired) {
		level = "warn"
	}
	s.notifier.Notify(level, err.Error())
}
