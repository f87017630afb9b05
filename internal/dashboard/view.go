package dashboard

import (
	"cmp"
	"slices"
	"time"

	"blossom-cafe/internal/domain"
)

// priorityClass buckets statuses for board placement: orders needing
// kitchen attention first, orders waiting for pickup second, everything
// else last.
func priorityClass(s domain.Status) int {
	switch s {
	case domain.StatusPending, domain.StatusPreparing:
		return 1
	case domain.StatusReady:
		return 2
	default:
		return 5
	}
}

// SortOrders returns a copy sorted by priority class, then oldest first.
// The sort is stable, so equal keys keep their relative input order.
func SortOrders(orders []domain.Order) []domain.Order {
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b domain.Order) int {
		if c := cmp.Compare(priorityClass(a.Status), priorityClass(b.Status)); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// ElapsedTime is how long the order has been active. Once completed_at is
// stamped the value freezes, so finished tickets stop counting up.
func ElapsedTime(o *domain.Order, now time.Time) time.Duration {
	if o.CompletedAt != nil {
		return o.CompletedAt.Sub(o.CreatedAt)
	}
	return now.Sub(o.CreatedAt)
}
