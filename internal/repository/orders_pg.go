// Package repository is the authoritative order store. All writes go
// through single transactions; status changes are compare-and-swapped on
// the order version and appended to the status log.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"blossom-cafe/internal/domain"
	"blossom-cafe/internal/lifecycle"
	"blossom-cafe/internal/payment"
)

// NewItem is a line-item snapshot taken at creation time. CategoryKind is
// copied from the product row, not derived from its name.
type NewItem struct {
	ProductID    int64
	ProductName  string
	Quantity     int
	UnitPrice    float64
	CategoryKind domain.CategoryKind
}

// CreateOrder is the input to Create.
type CreateOrder struct {
	Type        domain.OrderType
	TableNumber *string
	TotalAmount float64
	Items       []NewItem
}

type Orders interface {
	Create(ctx context.Context, req CreateOrder) (*domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, target domain.Status, expectedVersion int64, actor string) (*domain.Order, error)
	RecordPayments(ctx context.Context, id int64, entries []payment.Entry) (*domain.Order, error)
}

type ordersPG struct {
	pool *pgxpool.Pool
}

func NewOrdersPG(pool *pgxpool.Pool) Orders {
	return &ordersPG{pool: pool}
}

func persistence(op string, err error) error {
	return &domain.PersistenceError{Op: op, Err: err}
}

func (r *ordersPG) Create(ctx context.Context, req CreateOrder) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistence("create order", err)
	}
	defer tx.Rollback(ctx)

	// Per-day sequence for the human-facing number, computed under the
	// transaction so two concurrent creates cannot collide.
	var seq int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) + 1 FROM orders WHERE created_at::date = CURRENT_DATE`,
	).Scan(&seq); err != nil {
		return nil, persistence("create order", err)
	}
	number := fmt.Sprintf("ORD_%s_%03d", time.Now().UTC().Format("20060102"), seq)

	o := &domain.Order{
		Number:        number,
		Type:          req.Type,
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentPending,
		TotalAmount:   req.TotalAmount,
		TableNumber:   req.TableNumber,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, order_type, status, payment_status, total_amount, table_number, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, NOW(), NOW())
		RETURNING id, version, created_at, updated_at`,
		o.Number, o.Type, o.Status, o.PaymentStatus, o.TotalAmount, o.TableNumber,
	).Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, persistence("insert order", err)
	}

	for _, it := range req.Items {
		item := domain.OrderItem{
			OrderID:      o.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			Subtotal:     float64(it.Quantity) * it.UnitPrice,
			CategoryKind: it.CategoryKind,
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal, category_kind)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal, item.CategoryKind,
		).Scan(&item.ID); err != nil {
			return nil, persistence("insert order item", err)
		}
		o.Items = append(o.Items, item)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, 'order-service', NOW())`,
		o.ID, o.Status,
	); err != nil {
		return nil, persistence("insert status log", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence("create order", err)
	}
	return o, nil
}

func (r *ordersPG) Get(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := r.getOrderRow(ctx, r.pool, id, false)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, r.pool, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *ordersPG) List(ctx context.Context, activeOnly bool) ([]domain.Order, error) {
	q := `
		SELECT id, order_number, order_type, status, payment_status, total_amount,
		       table_number, version, created_at, updated_at, completed_at
		FROM orders`
	if activeOnly {
		q += ` WHERE status NOT IN ('served', 'cancelled')`
	}
	q += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, persistence("list orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	index := map[int64]int{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.Type, &o.Status, &o.PaymentStatus,
			&o.TotalAmount, &o.TableNumber, &o.Version, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt); err != nil {
			return nil, persistence("scan order", err)
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list orders", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal, category_kind
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, persistence("list order items", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it domain.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.CategoryKind); err != nil {
			return nil, persistence("scan order item", err)
		}
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, persistence("list order items", err)
	}

	payRows, err := r.pool.Query(ctx, `
		SELECT id, order_id, method, amount, reference, created_at
		FROM order_payments WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, persistence("list payments", err)
	}
	defer payRows.Close()
	for payRows.Next() {
		var p domain.OrderPayment
		if err := payRows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.CreatedAt); err != nil {
			return nil, persistence("scan payment", err)
		}
		i := index[p.OrderID]
		orders[i].Payments = append(orders[i].Payments, p)
	}
	if err := payRows.Err(); err != nil {
		return nil, persistence("list payments", err)
	}

	return orders, nil
}

func (r *ordersPG) UpdateStatus(ctx context.Context, id int64, target domain.Status, expectedVersion int64, actor string) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistence("update status", err)
	}
	defer tx.Rollback(ctx)

	o, err := r.getOrderRow(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if o.Version != expectedVersion {
		return nil, domain.ErrConflict
	}
	if err := r.loadChildren(ctx, tx, o); err != nil {
		return nil, err
	}

	// Take charge is gated by the payment workflow.
	if o.Status == domain.StatusPending && target == domain.StatusPreparing && !payment.IsPaid(o) {
		return nil, domain.ErrPaymentRequired
	}

	if err := lifecycle.Apply(o, target, time.Now().UTC()); err != nil {
		return nil, err
	}
	o.Version++

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = $3, completed_at = $4, version = $5
		WHERE id = $1`,
		o.ID, o.Status, o.UpdatedAt, o.CompletedAt, o.Version,
	); err != nil {
		return nil, persistence("update order", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, NOW())`,
		o.ID, o.Status, actor,
	); err != nil {
		return nil, persistence("insert status log", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence("update status", err)
	}
	return o, nil
}

func (r *ordersPG) RecordPayments(ctx context.Context, id int64, entries []payment.Entry) (*domain.Order, error) {
	if err := payment.ValidateBatch(entries); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistence("record payments", err)
	}
	defer tx.Rollback(ctx)

	o, err := r.getOrderRow(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, tx, o); err != nil {
		return nil, err
	}

	// All entries land in one transaction: a failure on any insert rolls
	// back the whole batch.
	for _, e := range entries {
		p := domain.OrderPayment{OrderID: o.ID, Method: e.Method, Amount: e.Amount, Reference: e.Reference}
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_payments (order_id, method, amount, reference, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			RETURNING id, created_at`,
			p.OrderID, p.Method, p.Amount, p.Reference,
		).Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, persistence("insert payment", err)
		}
		o.Payments = append(o.Payments, p)
	}

	o.PaymentStatus = payment.SettledStatus(o)
	o.UpdatedAt = time.Now().UTC()
	o.Version++

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = $3, version = $4
		WHERE id = $1`,
		o.ID, o.PaymentStatus, o.UpdatedAt, o.Version,
	); err != nil {
		return nil, persistence("update payment status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence("record payments", err)
	}
	return o, nil
}

// querier covers both the pool and an open transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *ordersPG) getOrderRow(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Order, error) {
	sql := `
		SELECT id, order_number, order_type, status, payment_status, total_amount,
		       table_number, version, created_at, updated_at, completed_at
		FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var o domain.Order
	err := q.QueryRow(ctx, sql, id).Scan(&o.ID, &o.Number, &o.Type, &o.Status, &o.PaymentStatus,
		&o.TotalAmount, &o.TableNumber, &o.Version, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, persistence("get order", err)
	}
	return &o, nil
}

func (r *ordersPG) loadChildren(ctx context.Context, q querier, o *domain.Order) error {
	itemRows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal, category_kind
		FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return persistence("load items", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it domain.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.CategoryKind); err != nil {
			return persistence("scan item", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return persistence("load items", err)
	}

	payRows, err := q.Query(ctx, `
		SELECT id, order_id, method, amount, reference, created_at
		FROM order_payments WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return persistence("load payments", err)
	}
	defer payRows.Close()
	for payRows.Next() {
		var p domain.OrderPayment
		if err := payRows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.CreatedAt); err != nil {
			return persistence("scan payment", err)
		}
		o.Payments = append(o.Payments, p)
	}
	return payRows.Err()
}
