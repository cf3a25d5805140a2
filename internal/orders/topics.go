package orders

const (
	TopicOrderPlaced  = "order.placed"
	TopicOrderShipped = "order.shipped"
)

// PartitionKey keys events by order id so one order's events stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
