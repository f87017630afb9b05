package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"blossom-cafe/internal/domain"
)

type Products interface {
	ByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

type productsPG struct {
	pool *pgxpool.Pool
}

func NewProductsPG(pool *pgxpool.Pool) Products {
	return &productsPG{pool: pool}
}

func (r *productsPG) ByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price, category_kind, available
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, persistence("load products", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryKind, &p.Available); err != nil {
			return nil, persistence("scan product", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *productsPG) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price, category_kind, available
		FROM products ORDER BY id`)
	if err != nil {
		return nil, persistence("list products", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryKind, &p.Available); err != nil {
			return nil, persistence("scan product", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
