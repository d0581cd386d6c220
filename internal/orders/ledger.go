package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-mall-checkout.git/internal/address"
	"github.com/ariefcatur/go-mall-checkout.git/internal/catalog"
	"github.com/ariefcatur/go-mall-checkout.git/internal/inventory"
)

var (
	ErrEmptyCart        = errors.New("no selected cart lines")
	ErrInvalidPayMethod = errors.New("invalid pay method")
	ErrAddressNotFound  = errors.New("address not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrLineNotFound     = errors.New("order line not found")
	ErrNotReviewable    = errors.New("order not awaiting review")
	ErrPageOutOfRange   = errors.New("page out of range")

	// ErrCommitFailure wraps unexpected storage faults during a commit. The
	// transaction is rolled back; the client may safely retry the request.
	ErrCommitFailure = errors.New("order commit failed")
)

// Tx is the slice of pgx.Tx the ledger drives.
type Tx interface {
	catalog.Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB serves the ledger's read paths and begins its transactions. PoolDB adapts
// a pgxpool.Pool to it.
type DB interface {
	catalog.Querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error)
}

type PoolDB struct{ *pgxpool.Pool }

func (p PoolDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error) {
	return p.Pool.BeginTx(ctx, opts)
}

// Ledger owns the durable order records. Commit is the only write path that
// touches stock, and it is all-or-nothing: either every selected line reserves
// and an order appears, or nothing changes.
type Ledger struct {
	DB        DB
	Addresses *address.Repo
	IDs       *IDGenerator
	Freight   decimal.Decimal
	Retry     inventory.Policy
}

// Receipt reports a successful commit back to the caller, which then purges the
// committed lines from the cart (best effort, outside the transaction).
type Receipt struct {
	OrderID   string
	PayAmount decimal.Decimal
	ItemCount int
	SKUIDs    []int64
}

// Commit turns the selected cart lines into a durable order, decrementing stock
// per line through the reservation engine bound to the same transaction.
// Iteration order over lines is unspecified; they are independent.
func (l *Ledger) Commit(ctx context.Context, userID int64, selected map[int64]int, addressID int64, pay PayMethod) (Receipt, error) {
	if !pay.Valid() {
		return Receipt{}, ErrInvalidPayMethod
	}
	if len(selected) == 0 {
		return Receipt{}, ErrEmptyCart
	}

	if _, err := l.Addresses.Get(ctx, addressID, userID); err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return Receipt{}, ErrAddressNotFound
		}
		return Receipt{}, fmt.Errorf("%w: %v", ErrCommitFailure, err)
	}

	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrCommitFailure, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderID := l.IDs.Next(userID)
	status := pay.InitialStatus()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, address_id, total_count, total_amount, freight, pay_method, status)
		VALUES ($1, $2, $3, 0, 0, $4, $5, $6)`,
		orderID, userID, addressID, l.Freight, pay, status)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrCommitFailure, err)
	}

	engine := &inventory.Engine{
		Accessor: &catalog.Repo{DB: tx},
		Policy:   l.Retry,
	}

	totalCount := 0
	totalAmount := decimal.Zero
	skuIDs := make([]int64, 0, len(selected))

	for skuID, qty := range selected {
		res, err := engine.Reserve(ctx, skuID, qty)
		if err != nil {
			// rollback via defer: no partial order, no surviving stock mutation
			if errors.Is(err, inventory.ErrInsufficientStock) {
				return Receipt{}, err
			}
			return Receipt{}, fmt.Errorf("%w: %v", ErrCommitFailure, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, sku_id, qty, unit_price)
			VALUES ($1, $2, $3, $4)`,
			orderID, skuID, qty, res.UnitPrice)
		if err != nil {
			return Receipt{}, fmt.Errorf("%w: %v", ErrCommitFailure, err)
		}

		totalCount += qty
		totalAmount = totalAmount.Add(res.UnitPrice.Mul(decimal.NewFromInt(int64(qty))))
		skuIDs = append(skuIDs, skuID)
	}

	payAmount := totalAmount.Add(l.Freight)
	_, err = tx.Exec(ctx, `UPDATE orders SET total_count=$2, total_amount=$3 WHERE id=$1`,
		orderID, totalCount, payAmount)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrCommitFailure, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrCommitFailure, err)
	}
	return Receipt{OrderID: orderID, PayAmount: payAmount, ItemCount: totalCount, SKUIDs: skuIDs}, nil
}

// ListByUser returns one page of the user's orders, newest first, with their
// lines. Pages are 1-based; a page past the end is ErrPageOutOfRange.
func (l *Ledger) ListByUser(ctx context.Context, userID int64, page, perPage int) ([]OrderSummary, int, error) {
	if perPage <= 0 {
		perPage = 5
	}

	var count int
	if err := l.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id=$1`, userID).Scan(&count); err != nil {
		return nil, 0, err
	}
	totalPages := (count + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 || page > totalPages {
		return nil, totalPages, ErrPageOutOfRange
	}

	rows, err := l.DB.Query(ctx, `
		SELECT id, user_id, address_id, total_count, total_amount, freight, pay_method, status, created_at
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []OrderSummary
	index := map[string]int{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.AddressID, &o.TotalCount, &o.TotalAmount, &o.Freight, &o.PayMethod, &o.Status, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		index[o.ID] = len(out)
		out = append(out, OrderSummary{Order: o})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return out, totalPages, nil
	}

	ids := make([]any, 0, len(out))
	params := ""
	for i, s := range out {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		ids = append(ids, s.ID)
	}
	lineRows, err := l.DB.Query(ctx, `
		SELECT ol.order_id, ol.id, ol.sku_id, s.name, ol.qty, ol.unit_price
		FROM order_lines ol JOIN skus s ON s.id = ol.sku_id
		WHERE ol.order_id IN (`+params+`)
		ORDER BY ol.id`, ids...)
	if err != nil {
		return nil, 0, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var orderID string
		var ls LineSummary
		if err := lineRows.Scan(&orderID, &ls.LineID, &ls.SKUID, &ls.Name, &ls.Qty, &ls.UnitPrice); err != nil {
			return nil, 0, err
		}
		ls.Amount = ls.UnitPrice.Mul(decimal.NewFromInt(int64(ls.Qty)))
		i := index[orderID]
		out[i].Lines = append(out[i].Lines, ls)
	}
	return out, totalPages, lineRows.Err()
}
