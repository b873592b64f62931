package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/vqhuy/go-storefront-orders/internal/kafka"
	"github.com/vqhuy/go-storefront-orders/internal/payment"
	"github.com/vqhuy/go-storefront-orders/internal/redisx"
)

// Settler is the reconciler's view of the store: status transitions keyed
// by order code, locked row-by-row.
type Settler interface {
	GetByCode(ctx context.Context, code string) (*Order, error)
	ApplySettlement(ctx context.Context, code string, success bool) (*Order, error)
	Cancel(ctx context.Context, code, userID string) (*Order, error)
}

// Reconciler applies verified gateway verdicts and user cancellations to
// persisted orders. It only ever sees callbacks that already passed
// signature verification.
type Reconciler struct {
	Store           Settler
	Redis           *redis.Client
	ProducerSettled EventPublisher
	ProducerCancel  EventPublisher
	Log             *zap.Logger
	Name            string
}

// ApplyReturn transitions the order for a verified callback. A success
// verdict whose amount does not match the order's final amount is demoted
// to a failed attempt; it is a signed outcome, not an error. Replays of the
// same success verdict are naturally idempotent (deterministic assignment).
func (rc *Reconciler) ApplyReturn(ctx context.Context, res payment.ReturnResult) (*Order, error) {
	o, err := rc.Store.GetByCode(ctx, res.OrderCode)
	if err != nil {
		return nil, err
	}

	success := res.Success
	if success && res.Amount != o.FinalAmount {
		rc.Log.Warn("settlement amount mismatch, recording failed attempt",
			zap.String("code", res.OrderCode),
			zap.Int64("callback_amount", res.Amount),
			zap.Int64("order_amount", o.FinalAmount))
		success = false
	}

	updated, err := rc.Store.ApplySettlement(ctx, res.OrderCode, success)
	if err != nil {
		return nil, err
	}

	rc.refreshCache(ctx, updated)
	rc.publishSettled(updated, res, success)
	rc.Log.Info("payment settled",
		zap.String("code", updated.Code),
		zap.Bool("success", success),
		zap.String("response_code", res.ResponseCode),
		zap.String("pay_date", res.PayDate))
	return updated, nil
}

// Cancel is the user-initiated transition; allowed only while pending.
func (rc *Reconciler) Cancel(ctx context.Context, code, userID string) (*Order, error) {
	o, err := rc.Store.Cancel(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	rc.refreshCache(ctx, o)
	if rc.ProducerCancel != nil {
		ev := Envelope{
			EventID:       uuid.NewString(),
			EventType:     EventOrderCancelled,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      rc.Name,
			CorrelationID: o.Code,
			Payload:       kafkax.MustMarshal(OrderCancelledPayload{OrderCode: o.Code, UserID: o.UserID}),
		}
		rc.ProducerCancel.Publish(PartitionKey(o.Code), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCancelled)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
	rc.Log.Info("order cancelled", zap.String("code", o.Code))
	return o, nil
}

func (rc *Reconciler) refreshCache(ctx context.Context, o *Order) {
	if rc.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.Code)
	val := fmt.Sprintf(`{"order_status":%q,"payment_status":%q}`, o.OrderStatus, o.PaymentStatus)
	_ = rc.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func (rc *Reconciler) publishSettled(o *Order, res payment.ReturnResult, success bool) {
	if rc.ProducerSettled == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventPaymentSettled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      rc.Name,
		CorrelationID: o.Code,
		Payload: kafkax.MustMarshal(PaymentSettledPayload{
			OrderCode:     o.Code,
			Success:       success,
			ResponseCode:  res.ResponseCode,
			TransactionNo: res.TransactionNo,
			BankCode:      res.BankCode,
			Amount:        res.Amount,
			PayDate:       res.PayDate,
			OrderStatus:   o.OrderStatus,
			PaymentStatus: o.PaymentStatus,
		}),
	}
	rc.ProducerSettled.Publish(PartitionKey(o.Code), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventPaymentSettled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
