// Package address gives the core read-only access to shipping address
// snapshots; address CRUD belongs to a collaborator service.
package address

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-mall-checkout.git/internal/catalog"
)

var ErrNotFound = errors.New("address not found")

type Address struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"-"`
	Receiver string `json:"receiver"`
	Detail   string `json:"detail"`
	Mobile   string `json:"mobile"`
}

type Repo struct{ DB catalog.Querier }

func (r *Repo) Get(ctx context.Context, id, userID int64) (Address, error) {
	var a Address
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, receiver, detail, mobile
		FROM addresses WHERE id=$1 AND user_id=$2 AND NOT is_deleted`, id, userID).
		Scan(&a.ID, &a.UserID, &a.Receiver, &a.Detail, &a.Mobile)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	if err != nil {
		return Address{}, err
	}
	return a, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Address, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, receiver, detail, mobile
		FROM addresses WHERE user_id=$1 AND NOT is_deleted ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Receiver, &a.Detail, &a.Mobile); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
