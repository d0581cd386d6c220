package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced = "OrderPlaced"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// OrderPlacedPayload feeds the post-commit notifiers (email/SMS). Consumers are
// strictly fire-and-forget: nothing here can affect the committed order.
type OrderPlacedPayload struct {
	OrderID   string    `json:"order_id"`
	UserID    int64     `json:"user_id"`
	PayMethod PayMethod `json:"pay_method"`
	PayAmount string    `json:"pay_amount"`
	ItemCount int       `json:"item_count"`
}
