// Package statuscache keeps the Redis order-status cache in step with
// settlement events, so status reads stay hot even when another instance
// handled the callback.
package statuscache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/vqhuy/go-storefront-orders/internal/kafka"
	"github.com/vqhuy/go-storefront-orders/internal/orders"
	"github.com/vqhuy/go-storefront-orders/internal/redisx"
)

type Worker struct {
	Redis       *redis.Client
	Log         *zap.Logger
	ServiceName string
}

// HandlePaymentSettled is mounted as the consumer handler for the
// settlement topic.
func (w *Worker) HandlePaymentSettled(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentSettled {
		return nil // ignore
	}

	// dedup by event id: gateway retries may produce duplicate events
	dkey := fmt.Sprintf(redisx.KeyDedup, w.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, w.Redis, dkey); exists {
		return nil
	}
	_ = w.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.PaymentSettledPayload](env.Payload)
	if err != nil {
		return err
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderCode)
	val := fmt.Sprintf(`{"order_status":%q,"payment_status":%q}`, p.OrderStatus, p.PaymentStatus)
	if err := w.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}

	w.Log.Info("status cache refreshed",
		zap.String("code", p.OrderCode),
		zap.Bool("success", p.Success),
		zap.String("event_id", env.EventID))
	return nil
}
