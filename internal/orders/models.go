package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayMethod int

const (
	PayOnDelivery PayMethod = 1
	PayOnline     PayMethod = 2
)

func (m PayMethod) Valid() bool { return m == PayOnDelivery || m == PayOnline }

// InitialStatus routes a new order by how it will be paid: electronic methods
// wait for payment, pay-on-delivery goes straight to the shipping queue.
func (m PayMethod) InitialStatus() Status {
	if m == PayOnline {
		return StatusPendingPayment
	}
	return StatusAwaitingShipment
}

type Order struct {
	ID          string          `json:"order_id"`
	UserID      int64           `json:"-"`
	AddressID   int64           `json:"address_id"`
	TotalCount  int             `json:"total_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Freight     decimal.Decimal `json:"freight"`
	PayMethod   PayMethod       `json:"pay_method"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"create_time"`
}

type OrderLine struct {
	ID          int64
	OrderID     string
	SKUID       int64
	Qty         int
	UnitPrice   decimal.Decimal // frozen at reservation time, never tracks later catalog changes
	Comment     string
	Score       int
	IsAnonymous bool
	IsCommented bool
}

// OrderSummary is one entry of the paginated order listing.
type OrderSummary struct {
	Order
	Lines []LineSummary `json:"skus"`
}

type LineSummary struct {
	LineID    int64           `json:"line_id,omitempty"`
	SKUID     int64           `json:"sku_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"count"`
	UnitPrice decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}
