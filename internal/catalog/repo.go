package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrSKUNotFound     = errors.New("sku not found")
	ErrProductNotFound = errors.New("product not found")
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so the same accessor can run
// standalone or inside the order ledger's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct{ DB Querier }

func (r *Repo) GetSKU(ctx context.Context, skuID int64) (SKU, error) {
	var s SKU
	err := r.DB.QueryRow(ctx, `
		SELECT id, product_id, name, price, stock, sales, comments, created_at, updated_at
		FROM skus WHERE id=$1`, skuID).
		Scan(&s.ID, &s.ProductID, &s.Name, &s.Price, &s.Stock, &s.Sales, &s.Comments, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SKU{}, ErrSKUNotFound
	}
	if err != nil {
		return SKU{}, err
	}
	return s, nil
}

func (r *Repo) GetSKUs(ctx context.Context, ids []int64) (map[int64]SKU, error) {
	if len(ids) == 0 {
		return map[int64]SKU{}, nil
	}
	args := make([]any, 0, len(ids))
	params := ""
	for i, id := range ids {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, name, price, stock, sales, comments, created_at, updated_at
		FROM skus WHERE id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]SKU{}
	for rows.Next() {
		var s SKU
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Name, &s.Price, &s.Stock, &s.Sales, &s.Comments, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

func (r *Repo) ReadStock(ctx context.Context, skuID int64) (StockView, error) {
	var v StockView
	err := r.DB.QueryRow(ctx, `SELECT product_id, price, stock, sales FROM skus WHERE id=$1`, skuID).
		Scan(&v.ProductID, &v.Price, &v.Stock, &v.Sales)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockView{}, ErrSKUNotFound
	}
	if err != nil {
		return StockView{}, err
	}
	return v, nil
}

// ConditionalUpdateStock applies the swap only if stock still equals expectedStock.
// Zero affected rows means a concurrent reservation won the race.
func (r *Repo) ConditionalUpdateStock(ctx context.Context, skuID int64, expectedStock, newStock, newSales int) (int64, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE skus SET stock=$3, sales=$4, updated_at=now()
		WHERE id=$1 AND stock=$2`, skuID, expectedStock, newStock, newSales)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// GetProduct reads the product aggregate whose sales counter the reservations
// feed.
func (r *Repo) GetProduct(ctx context.Context, productID int64) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT id, name, sales FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Name, &p.Sales)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) IncrementProductSales(ctx context.Context, productID int64, qty int) error {
	_, err := r.DB.Exec(ctx, `UPDATE products SET sales = sales + $2 WHERE id=$1`, productID, qty)
	return err
}

func (r *Repo) IncrementSKUComments(ctx context.Context, skuID int64) error {
	_, err := r.DB.Exec(ctx, `UPDATE skus SET comments = comments + 1 WHERE id=$1`, skuID)
	return err
}
