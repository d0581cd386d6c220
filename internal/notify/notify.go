package notify

import (
	"context"
	"log"

	"github.com/ariefcatur/go-mall-checkout.git/internal/orders"
)

// Sender delivers one order-placed notice over one channel. Delivery transports
// (SMTP, SMS gateways) live behind this interface; their failures are logged
// and never propagate back to order state.
type Sender interface {
	Name() string
	SendOrderPlaced(ctx context.Context, p orders.OrderPlacedPayload) error
}

type EmailSender struct{}

func (EmailSender) Name() string { return "email" }

func (EmailSender) SendOrderPlaced(ctx context.Context, p orders.OrderPlacedPayload) error {
	log.Printf("email: order %s placed for user %d, pay amount %s", p.OrderID, p.UserID, p.PayAmount)
	return nil
}

type SMSSender struct{}

func (SMSSender) Name() string { return "sms" }

func (SMSSender) SendOrderPlaced(ctx context.Context, p orders.OrderPlacedPayload) error {
	log.Printf("sms: order %s placed for user %d", p.OrderID, p.UserID)
	return nil
}
