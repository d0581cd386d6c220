package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type SKU struct {
	ID        int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	Sales     int
	Comments  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID    int64
	Name  string
	Sales int
}

// StockView is what a reservation attempt reads before the conditional swap.
type StockView struct {
	ProductID int64
	Price     decimal.Decimal
	Stock     int
	Sales     int
}
