package orders

import "time"

// All monetary amounts are VND integers (major units); the gateway's
// minor-unit encoding lives in internal/payment only.

type Product struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url,omitempty"`
	Price     int64     `json:"price"`
	SalePrice *int64    `json:"sale_price,omitempty"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductAttribute is a sellable variant (size, color). Stock is tracked
// per variant; price comes from the parent product.
type ProductAttribute struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

type Order struct {
	ID             string          `json:"id"`
	Code           string          `json:"order_code"`
	UserID         string          `json:"user_id"`
	OrderStatus    Status          `json:"order_status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentMethod  string          `json:"payment_method"`
	TotalAmount    int64           `json:"total_amount"`
	ShippingFee    int64           `json:"shipping_fee"`
	DiscountAmount int64           `json:"discount_amount"`
	FinalAmount    int64           `json:"final_amount"`
	Note           string          `json:"note,omitempty"`
	Address        ShippingAddress `json:"shipping_address"`
	Items          []OrderItem     `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ShippingAddress is a per-order snapshot: later edits to the user's saved
// address never rewrite history.
type ShippingAddress struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Street   string `json:"address"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city"`
}

// OrderItem captures name/SKU/image/price at purchase time. Line totals are
// frozen; catalog changes after checkout do not touch them.
type OrderItem struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	AttributeID *string `json:"product_attribute_id,omitempty"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	ImageURL    string  `json:"image_url,omitempty"`
	UnitPrice   int64   `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	LineTotal   int64   `json:"line_total"`
}

type CartItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	AttributeID *string   `json:"product_attribute_id,omitempty"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}
