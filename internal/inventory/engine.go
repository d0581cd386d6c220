package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-mall-checkout.git/internal/catalog"
)

var (
	// ErrInsufficientStock is terminal for the whole commit attempt: the engine
	// never retries it.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrRetryExhausted means the conditional update kept losing races until the
	// attempt budget ran out. Callers surface it as a generic commit failure.
	ErrRetryExhausted = errors.New("reservation retries exhausted")
)

// StockAccessor is the narrow slice of the catalog the engine mutates.
// catalog.Repo satisfies it for both pool- and tx-backed queriers.
type StockAccessor interface {
	ReadStock(ctx context.Context, skuID int64) (catalog.StockView, error)
	ConditionalUpdateStock(ctx context.Context, skuID int64, expectedStock, newStock, newSales int) (int64, error)
	IncrementProductSales(ctx context.Context, productID int64, qty int) error
}

// Policy bounds the optimistic retry loop. No sleeping between attempts: a lost
// race only costs one extra read, and backing off would starve sibling lines of
// the same order.
type Policy struct {
	MaxAttempts int
}

var DefaultPolicy = Policy{MaxAttempts: 32}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultPolicy.MaxAttempts
	}
	return p.MaxAttempts
}

// Reservation records one successful stock decrement, with the unit price frozen
// at the moment of reservation.
type Reservation struct {
	SKUID     int64
	ProductID int64
	Qty       int
	UnitPrice decimal.Decimal
}

type Engine struct {
	Accessor StockAccessor
	Policy   Policy
}

// Reserve attempts to move qty units of skuID from stock to sales atomically
// relative to every other concurrent reservation on the same SKU:
//
//	read (stock, sales) -> check availability -> swap conditioned on the read stock
//
// Zero affected rows means another reservation changed stock first; the attempt
// is discarded and the loop restarts from a fresh read.
func (e *Engine) Reserve(ctx context.Context, skuID int64, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, fmt.Errorf("invalid quantity %d for sku %d", qty, skuID)
	}
	for attempt := 0; attempt < e.Policy.attempts(); attempt++ {
		v, err := e.Accessor.ReadStock(ctx, skuID)
		if err != nil {
			return Reservation{}, err
		}
		if qty > v.Stock {
			return Reservation{}, fmt.Errorf("sku %d: want %d have %d: %w", skuID, qty, v.Stock, ErrInsufficientStock)
		}

		affected, err := e.Accessor.ConditionalUpdateStock(ctx, skuID, v.Stock, v.Stock-qty, v.Sales+qty)
		if err != nil {
			return Reservation{}, err
		}
		if affected == 0 {
			// lost the race, re-read and try again
			continue
		}

		if err := e.Accessor.IncrementProductSales(ctx, v.ProductID, qty); err != nil {
			return Reservation{}, err
		}
		return Reservation{SKUID: skuID, ProductID: v.ProductID, Qty: qty, UnitPrice: v.Price}, nil
	}
	return Reservation{}, fmt.Errorf("sku %d: %w", skuID, ErrRetryExhausted)
}
