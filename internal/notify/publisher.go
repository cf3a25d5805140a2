package notify

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pranjay/orders-core/internal/checkout"
	kafkax "github.com/pranjay/orders-core/internal/kafka"
	"github.com/pranjay/orders-core/internal/orders"
)

// Publisher enqueues order lifecycle events after the owning transaction has
// committed. Both producers are fire-and-forget; a broker outage is logged by
// the producer loop and never reaches the request path.
type Publisher struct {
	Placed  *kafkax.Producer
	Shipped *kafkax.Producer
	Service string
	Log     *zap.Logger
}

func (p *Publisher) OrderPlaced(ord *orders.Order, customer checkout.Customer) {
	payload := orders.OrderPlacedPayload{
		OrderID:       ord.ID,
		OrderNumber:   ord.Number,
		UserID:        ord.UserID,
		CustomerEmail: customer.Email,
		CustomerName:  customer.Name,
		TotalAmount:   ord.TotalAmount,
		ItemsCount:    len(ord.Items),
	}
	p.publish(p.Placed, orders.EventOrderPlaced, ord.ID, kafkax.MustMarshal(payload))
}

func (p *Publisher) OrderShipped(ord *orders.Order) {
	payload := orders.OrderShippedPayload{
		OrderID:       ord.ID,
		OrderNumber:   ord.Number,
		UserID:        ord.UserID,
		CustomerEmail: ord.CustomerEmail,
	}
	p.publish(p.Shipped, orders.EventOrderShipped, ord.ID, kafkax.MustMarshal(payload))
}

func (p *Publisher) publish(prod *kafkax.Producer, eventType, orderID string, payload []byte) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		CorrelationID: orderID,
		Payload:       payload,
	}
	prod.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	p.Log.Debug("event published", zap.String("event_type", eventType), zap.String("order_id", orderID))
}
