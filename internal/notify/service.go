package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-mall-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-mall-checkout.git/internal/orders"
	"github.com/ariefcatur/go-mall-checkout.git/internal/redisx"
)

// Service consumes order.placed events and fans them out to every sender.
// Delivery is at-least-once upstream, so events dedup by id before fan-out.
type Service struct {
	Redis       *redis.Client
	Senders     []Sender
	ServiceName string
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, sender := range s.Senders {
		if err := sender.SendOrderPlaced(ctx, p); err != nil {
			// fire-and-forget: a failed channel never blocks the others
			log.Printf("notify %s: order %s: %v", sender.Name(), p.OrderID, err)
		}
	}
	return nil
}
