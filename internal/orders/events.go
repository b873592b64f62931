package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderCancelled = "OrderCancelled"
	EventPaymentSettled = "PaymentSettled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order code
	Payload       json.RawMessage `json:"payload"`
}

type ItemLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderCode   string     `json:"order_code"`
	UserID      string     `json:"user_id"`
	Items       []ItemLine `json:"items"`
	TotalAmount int64      `json:"total_amount"`
	FinalAmount int64      `json:"final_amount"`
}

type OrderCancelledPayload struct {
	OrderCode string `json:"order_code"`
	UserID    string `json:"user_id"`
}

type PaymentSettledPayload struct {
	OrderCode     string        `json:"order_code"`
	Success       bool          `json:"success"`
	ResponseCode  string        `json:"response_code"`
	TransactionNo string        `json:"transaction_no,omitempty"`
	BankCode      string        `json:"bank_code,omitempty"`
	Amount        int64         `json:"amount"`
	PayDate       string        `json:"pay_date,omitempty"`
	OrderStatus   Status        `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}
