package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-mall-checkout.git/internal/catalog"
)

// SubmitComment records a post-purchase review on one order line and recomputes
// the order's review sub-state: FullyReviewed once every line carries a review,
// PartiallyReviewed before that. A reviewed line stays reviewed.
func (l *Ledger) SubmitComment(ctx context.Context, userID int64, orderID string, lineID int64, comment string, score int, anonymous bool) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if !status.Reviewable() {
		return ErrNotReviewable
	}

	var skuID int64
	var wasCommented bool
	err = tx.QueryRow(ctx, `SELECT sku_id, is_commented FROM order_lines WHERE id=$1 AND order_id=$2`, lineID, orderID).
		Scan(&skuID, &wasCommented)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLineNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE order_lines SET comment=$3, score=$4, is_anonymous=$5, is_commented=TRUE
		WHERE id=$1 AND order_id=$2`, lineID, orderID, comment, score, anonymous)
	if err != nil {
		return err
	}

	if !wasCommented {
		repo := &catalog.Repo{DB: tx}
		if err := repo.IncrementSKUComments(ctx, skuID); err != nil {
			return err
		}
	}

	lines, err := linesForOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	next := reviewStatus(lines)
	if status != next && CanTransition(status, next) {
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, next); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UncommentedLines lists the order's lines still awaiting a review.
func (l *Ledger) UncommentedLines(ctx context.Context, userID int64, orderID string) ([]LineSummary, error) {
	var exists bool
	err := l.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1 AND user_id=$2)`, orderID, userID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOrderNotFound
	}

	rows, err := l.DB.Query(ctx, `
		SELECT ol.id, ol.sku_id, s.name, ol.qty, ol.unit_price
		FROM order_lines ol JOIN skus s ON s.id = ol.sku_id
		WHERE ol.order_id=$1 AND NOT ol.is_commented
		ORDER BY ol.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineSummary
	for rows.Next() {
		var ls LineSummary
		if err := rows.Scan(&ls.LineID, &ls.SKUID, &ls.Name, &ls.Qty, &ls.UnitPrice); err != nil {
			return nil, err
		}
		ls.Amount = ls.UnitPrice.Mul(decimalFromInt(ls.Qty))
		out = append(out, ls)
	}
	return out, rows.Err()
}

func linesForOrder(ctx context.Context, q catalog.Querier, orderID string) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, sku_id, qty, unit_price, comment, score, is_anonymous, is_commented
		FROM order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var ol OrderLine
		if err := rows.Scan(&ol.ID, &ol.OrderID, &ol.SKUID, &ol.Qty, &ol.UnitPrice, &ol.Comment, &ol.Score, &ol.IsAnonymous, &ol.IsCommented); err != nil {
			return nil, err
		}
		out = append(out, ol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrLineNotFound)
	}
	return out, nil
}
