// Package notify turns committed order events into customer and admin emails.
// Delivery is best effort: a failed send is logged and the offset committed
// anyway, so a broken mail provider can never wedge the order pipeline.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/pranjay/orders-core/internal/kafka"
	"github.com/pranjay/orders-core/internal/orders"
)

// Deduper answers whether an event id has been seen before, recording it as a
// side effect.
type Deduper interface {
	SeenBefore(ctx context.Context, eventID string) (bool, error)
}

type Service struct {
	Mailer     Mailer
	Dedup      Deduper
	AdminEmail string
	Log        *zap.Logger
}

// HandleEvent is wired as the kafka consumer handler for both order topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; log and commit past it
		s.Log.Warn("undecodable event", zap.Error(err))
		return nil
	}

	seen, err := s.Dedup.SeenBefore(ctx, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.sendOrderPlaced(ctx, p)
	case orders.EventOrderShipped:
		p, err := kafkax.UnwrapPayload[orders.OrderShippedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.sendOrderShipped(ctx, p)
	default:
		// another consumer's event; nothing to do
	}
	return nil
}

func (s *Service) sendOrderPlaced(ctx context.Context, p orders.OrderPlacedPayload) {
	if p.CustomerEmail != "" {
		subject := fmt.Sprintf("Order confirmed: %s", p.OrderNumber)
		if err := s.Mailer.Send(ctx, p.CustomerEmail, subject, orderConfirmationHTML(p)); err != nil {
			s.Log.Warn("order confirmation email failed",
				zap.String("order_id", p.OrderID), zap.Error(err))
		}
	}
	if s.AdminEmail != "" {
		subject := fmt.Sprintf("New order %s", p.OrderNumber)
		if err := s.Mailer.Send(ctx, s.AdminEmail, subject, adminNewOrderHTML(p)); err != nil {
			s.Log.Warn("admin notification email failed",
				zap.String("order_id", p.OrderID), zap.Error(err))
		}
	}
}

func (s *Service) sendOrderShipped(ctx context.Context, p orders.OrderShippedPayload) {
	if p.CustomerEmail == "" {
		return
	}
	subject := fmt.Sprintf("Your order %s has shipped", p.OrderNumber)
	if err := s.Mailer.Send(ctx, p.CustomerEmail, subject, orderShippedHTML(p)); err != nil {
		s.Log.Warn("shipped email failed", zap.String("order_id", p.OrderID), zap.Error(err))
	}
}

func orderConfirmationHTML(p orders.OrderPlacedPayload) string {
	name := p.CustomerName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Thank you for your order!</h2>
<p>Hi %s,</p>
<p>We received your order <strong>%s</strong> (%d items, total %s).</p>
<p>We will let you know as soon as it ships.</p>
</div>`, name, p.OrderNumber, p.ItemsCount, p.TotalAmount.StringFixed(2))
}

func adminNewOrderHTML(p orders.OrderPlacedPayload) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif;">
<h2>New order placed</h2>
<p>Order <strong>%s</strong> from %s (%s): %d items, total %s.</p>
</div>`, p.OrderNumber, p.CustomerName, p.CustomerEmail, p.ItemsCount, p.TotalAmount.StringFixed(2))
}

func orderShippedHTML(p orders.OrderShippedPayload) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Your order is on its way</h2>
<p>Order <strong>%s</strong> has been handed to the carrier.</p>
</div>`, p.OrderNumber)
}
