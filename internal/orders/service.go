package orders

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/vqhuy/go-storefront-orders/internal/kafka"
	"github.com/vqhuy/go-storefront-orders/internal/redisx"
)

// Store is the durable side of order assembly. The pgx Repo is the real
// implementation; tests use an in-memory fake with failure injection.
type Store interface {
	CreateOrderTx(ctx context.Context, o *Order) error
	GetByCode(ctx context.Context, code string) (*Order, error)
	List(ctx context.Context, userID string, status Status) ([]Order, error)
}

// Catalog reads product data at order time. UnitPrice applies the
// sale-price-over-list-price rule; the returned value is what the line
// item freezes.
type Catalog interface {
	UnitPrice(ctx context.Context, productID string, attributeID *string) (int64, error)
	Product(ctx context.Context, productID string) (Product, error)
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type CreateOrderItem struct {
	ProductID   string  `json:"product_id"`
	AttributeID *string `json:"product_attribute_id,omitempty"`
	Quantity    int     `json:"quantity"`
}

type ShippingInfo struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city"`
}

type CreateOrderInput struct {
	UserID         string            `json:"user_id"`
	RequestID      string            `json:"request_id,omitempty"` // idempotency token
	Items          []CreateOrderItem `json:"items"`
	Shipping       ShippingInfo      `json:"shipping_info"`
	PaymentMethod  string            `json:"payment_method"`
	ShippingFee    int64             `json:"shipping_fee"`
	DiscountAmount int64             `json:"discount_amount"`
	Note           string            `json:"note,omitempty"`
}

type Service struct {
	Store    Store
	Catalog  Catalog
	Redis    *redis.Client
	Producer EventPublisher
	Log      *zap.Logger
	Name     string
}

const createRetries = 3

// CreateOrder turns a validated cart payload into a committed order. Prices
// are resolved from the catalog (never from the client), the write is one
// transaction, and a code collision retries with a fresh code.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	// Fast-path idempotency via Redis; the DB unique index stays the truth.
	if in.RequestID != "" && s.Redis != nil {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, in.RequestID)
		if code, err := s.Redis.Get(ctx, idemKey).Result(); err == nil && code != "" {
			if existing, err := s.Store.GetByCode(ctx, code); err == nil {
				return existing, nil
			}
		}
	}

	items := make([]OrderItem, 0, len(in.Items))
	var total int64
	for _, line := range in.Items {
		p, err := s.Catalog.Product(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		price, err := s.Catalog.UnitPrice(ctx, line.ProductID, line.AttributeID)
		if err != nil {
			return nil, err
		}
		lineTotal := price * int64(line.Quantity)
		items = append(items, OrderItem{
			ProductID:   line.ProductID,
			AttributeID: line.AttributeID,
			Name:        p.Name,
			SKU:         p.SKU,
			ImageURL:    p.ImageURL,
			UnitPrice:   price,
			Quantity:    line.Quantity,
			LineTotal:   lineTotal,
		})
		total += lineTotal
	}

	o := &Order{
		UserID:         in.UserID,
		OrderStatus:    StatusPending,
		PaymentStatus:  PayPending, // payment confirmation is always a later event
		PaymentMethod:  in.PaymentMethod,
		TotalAmount:    total,
		ShippingFee:    in.ShippingFee,
		DiscountAmount: in.DiscountAmount,
		FinalAmount:    total + in.ShippingFee - in.DiscountAmount,
		Note:           in.Note,
		Address: ShippingAddress{
			FullName: in.Shipping.FullName,
			Phone:    in.Shipping.Phone,
			Street:   in.Shipping.Address,
			Ward:     in.Shipping.Ward,
			District: in.Shipping.District,
			City:     in.Shipping.City,
		},
		Items: items,
	}

	var err error
	for attempt := 0; attempt < createRetries; attempt++ {
		o.Code = NewCode(time.Now())
		err = s.Store.CreateOrderTx(ctx, o)
		if err == nil {
			break
		}
		if !stderrors.Is(err, ErrConflict) {
			return nil, err
		}
		s.Log.Warn("order code collision, retrying", zap.String("code", o.Code))
	}
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if in.RequestID != "" {
			idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, in.RequestID)
			_ = s.Redis.Set(ctx, idemKey, o.Code, redisx.TTLIdempotency).Err()
		}
		s.cacheStatus(ctx, o)
	}

	s.publishCreated(ctx, o)
	s.Log.Info("order created",
		zap.String("code", o.Code),
		zap.String("user_id", o.UserID),
		zap.Int64("final_amount", o.FinalAmount))
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, code string) (*Order, error) {
	return s.Store.GetByCode(ctx, code)
}

func (s *Service) ListOrders(ctx context.Context, userID string, status Status) ([]Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return s.Store.List(ctx, userID, status)
}

// OrderStatus serves the hot status read: Redis first, DB on miss.
func (s *Service) OrderStatus(ctx context.Context, code string) (Status, PaymentStatus, error) {
	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, code)
		if raw, err := s.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var cached struct {
				OrderStatus   Status        `json:"order_status"`
				PaymentStatus PaymentStatus `json:"payment_status"`
			}
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached.OrderStatus, cached.PaymentStatus, nil
			}
		}
	}

	o, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		return "", "", err
	}
	if s.Redis != nil {
		s.cacheStatus(ctx, o)
	}
	return o.OrderStatus, o.PaymentStatus, nil
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.Code)
	val := fmt.Sprintf(`{"order_status":%q,"payment_status":%q}`, o.OrderStatus, o.PaymentStatus)
	_ = s.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func (s *Service) publishCreated(ctx context.Context, o *Order) {
	if s.Producer == nil {
		return
	}
	lines := make([]ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, ItemLine{ProductID: it.ProductID, Qty: it.Quantity, UnitPrice: it.UnitPrice})
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		CorrelationID: o.Code,
		Payload: kafkax.MustMarshal(OrderCreatedPayload{
			OrderCode:   o.Code,
			UserID:      o.UserID,
			Items:       lines,
			TotalAmount: o.TotalAmount,
			FinalAmount: o.FinalAmount,
		}),
	}
	s.Producer.Publish(PartitionKey(o.Code), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func validateCreate(in CreateOrderInput) error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: item %d: product_id is required", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrValidation, i)
		}
	}
	if strings.TrimSpace(in.Shipping.FullName) == "" {
		return fmt.Errorf("%w: fullName is required", ErrValidation)
	}
	if strings.TrimSpace(in.Shipping.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if strings.TrimSpace(in.Shipping.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	if strings.TrimSpace(in.Shipping.City) == "" {
		return fmt.Errorf("%w: city is required", ErrValidation)
	}
	if in.ShippingFee < 0 || in.DiscountAmount < 0 {
		return fmt.Errorf("%w: fees must be non-negative", ErrValidation)
	}
	return nil
}
