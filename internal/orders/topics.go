package orders

const (
	TopicOrderCreated   = "order.created"
	TopicOrderCancelled = "order.cancelled"
	TopicPaymentSettled = "order.payment.settled"
)

// Partition key = order code, so every event of one order keeps its order.
func PartitionKey(orderCode string) []byte { return []byte(orderCode) }
