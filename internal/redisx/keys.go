package redisx

import "time"

const (
	// Order-create idempotency: idem:order:create:{request_id} -> order code
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Status cache: order_status:{order_code} -> {"order_status":...,"payment_status":...}
	KeyOrderStatus = "order_status:%s"

	// Event dedup for consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
