package api

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"blossom-cafe/internal/domain"
	"blossom-cafe/internal/payment"
	"blossom-cafe/internal/repository"
)

type CreateOrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	OrderType   string                   `json:"order_type" validate:"required,oneof=dine_in takeaway delivery"`
	TableNumber *string                  `json:"table_number,omitempty"`
	Items       []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Version int64  `json:"version" validate:"required,gt=0"`
}

type PaymentEntryRequest struct {
	Method    string  `json:"method" validate:"required"`
	Amount    float64 `json:"amount" validate:"required"`
	Reference *string `json:"reference,omitempty"`
}

type SubmitPaymentsRequest struct {
	Payments []PaymentEntryRequest `json:"payments" validate:"required,min=1,dive"`
}

// EventSink is what the service needs from the notification bus.
type EventSink interface {
	OrderCreated(ctx context.Context, o *domain.Order)
	OrderUpdated(ctx context.Context, o *domain.Order)
	StatusChanged(ctx context.Context, o *domain.Order)
}

type Service struct {
	orders   repository.Orders
	products repository.Products
	events   EventSink
	validate *validator.Validate
	lg       zerolog.Logger
}

func NewService(orders repository.Orders, products repository.Products, events EventSink, lg zerolog.Logger) *Service {
	return &Service{
		orders:   orders,
		products: products,
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		lg:       lg,
	}
}

// CreateOrder snapshots products into line items, computes the total and
// persists the order in pending status.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &domain.ValidationError{Msg: "invalid order request", Err: err}
	}
	orderType := domain.OrderType(req.OrderType)
	if orderType == domain.OrderTypeDineIn && (req.TableNumber == nil || *req.TableNumber == "") {
		return nil, domain.Invalid("table_number is required for dine_in orders")
	}

	ids := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	create := repository.CreateOrder{Type: orderType, TableNumber: req.TableNumber}
	for _, it := range req.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, domain.Invalid("unknown product %d", it.ProductID)
		}
		if !p.Available {
			return nil, domain.Invalid("product %q is not available", p.Name)
		}
		create.Items = append(create.Items, repository.NewItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Quantity:     it.Quantity,
			UnitPrice:    p.Price,
			CategoryKind: p.CategoryKind,
		})
		create.TotalAmount += float64(it.Quantity) * p.Price
	}

	o, err := s.orders.Create(ctx, create)
	if err != nil {
		return nil, err
	}
	s.lg.Info().Str("action", "order_created").Str("order_number", o.Number).Float64("total", o.TotalAmount).Msg("order created")
	s.events.OrderCreated(ctx, o)
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, activeOnly bool) ([]domain.Order, error) {
	return s.orders.List(ctx, activeOnly)
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// UpdateStatus runs a lifecycle transition on behalf of an operator. The
// version is the one the operator last saw; a mismatch means somebody else
// got there first.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req UpdateStatusRequest, actor string) (*domain.Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &domain.ValidationError{Msg: "invalid status request", Err: err}
	}
	target := domain.Status(req.Status)
	if !target.Valid() {
		return nil, domain.Invalid("unknown status %q", req.Status)
	}

	o, err := s.orders.UpdateStatus(ctx, id, target, req.Version, actor)
	if err != nil {
		return nil, err
	}
	s.lg.Info().Str("action", "status_changed").
		Str("order_number", o.Number).Str("status", string(o.Status)).Str("changed_by", actor).
		Msg("order status changed")
	s.events.StatusChanged(ctx, o)
	return o, nil
}

// SubmitPayments records a payment batch atomically and recomputes the
// payment status.
func (s *Service) SubmitPayments(ctx context.Context, id int64, req SubmitPaymentsRequest) (*domain.Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &domain.ValidationError{Msg: "invalid payments request", Err: err}
	}
	entries := make([]payment.Entry, 0, len(req.Payments))
	for _, p := range req.Payments {
		entries = append(entries, payment.Entry{
			Method:    domain.PaymentMethod(p.Method),
			Amount:    p.Amount,
			Reference: p.Reference,
		})
	}
	if err := payment.ValidateBatch(entries); err != nil {
		return nil, err
	}

	o, err := s.orders.RecordPayments(ctx, id, entries)
	if err != nil {
		return nil, err
	}
	s.lg.Info().Str("action", "payments_recorded").
		Str("order_number", o.Number).Int("count", len(entries)).Str("payment_status", string(o.PaymentStatus)).
		Msg("payments recorded")
	s.events.OrderUpdated(ctx, o)
	return o, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}
