// Package payment implements the payment workflow that gates kitchen
// preparation: an order must be fully paid before it can leave pending.
package payment

import (
	"github.com/hashicorp/go-multierror"

	"blossom-cafe/internal/domain"
)

// Entry is one payment in a submitted batch.
type Entry struct {
	Method    domain.PaymentMethod `json:"method"`
	Amount    float64              `json:"amount"`
	Reference *string              `json:"reference,omitempty"`
}

// amountEpsilon absorbs accumulated float error so a fully paid order is
// never blocked by a sub-cent remainder.
const amountEpsilon = 0.005

// IsPaid reports whether the recorded payments cover the order total.
// Overpayment counts as paid.
func IsPaid(o *domain.Order) bool {
	return Outstanding(o) <= 0
}

// Outstanding returns the amount still owed, never negative.
func Outstanding(o *domain.Order) float64 {
	var paid float64
	for _, p := range o.Payments {
		paid += p.Amount
	}
	rest := o.TotalAmount - paid
	if rest <= amountEpsilon {
		return 0
	}
	return rest
}

// ValidateBatch checks a payment batch before anything is persisted. All
// problems are reported together so the operator can fix the batch in one
// pass. An empty batch is rejected.
func ValidateBatch(entries []Entry) error {
	if len(entries) == 0 {
		return &domain.ValidationError{Msg: "payment batch is empty"}
	}
	var errs *multierror.Error
	for i, e := range entries {
		if !e.Method.Valid() {
			errs = multierror.Append(errs, domain.Invalid("entry %d: unknown payment method %q", i, e.Method))
		}
		if e.Amount <= 0 {
			errs = multierror.Append(errs, domain.Invalid("entry %d: amount must be positive, got %.2f", i, e.Amount))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return &domain.ValidationError{Msg: "invalid payment batch", Err: err}
	}
	return nil
}

// SettledStatus recomputes the payment status after a batch lands. Refunded
// and failed are operator-set states and are never overwritten here.
func SettledStatus(o *domain.Order) domain.PaymentStatus {
	switch o.PaymentStatus {
	case domain.PaymentRefunded, domain.PaymentFailed:
		return o.PaymentStatus
	}
	if IsPaid(o) {
		return domain.PaymentCompleted
	}
	return domain.PaymentPending
}
