package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Queues the checkout core publishes to.
const (
	OrderEventsQueue = "order_events"
	ReconcileQueue   = "payment_reconcile_queue"
)

// Event types.
const (
	EventOrderConfirmed    = "order.confirmed"
	EventOrderCancelled    = "order.cancelled"
	EventOrderExpired      = "order.expired"
	EventPaidButOutOfStock = "payment.paid_but_out_of_stock"
)

// OrderEvent is the JSON payload published for checkout state changes.
type OrderEvent struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	OrderID   int64  `json:"order_id"`
	PaymentID int64  `json:"payment_id,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	At        string `json:"at"`
}

// Publisher publishes checkout events onto durable queues.
type Publisher struct {
	conn *amqp.Connection
}

// NewPublisher creates an event publisher over an open connection.
func NewPublisher(conn *amqp.Connection) *Publisher {
	return &Publisher{conn: conn}
}

// PublishOrderEvent publishes a state-change event on the order events queue.
func (p *Publisher) PublishOrderEvent(ctx context.Context, evtType string, orderID, paymentID int64) error {
	return p.publish(ctx, OrderEventsQueue, evtType, orderID, paymentID, 0)
}

// PublishReconcile publishes a manual-reconciliation case: money captured,
// goods unavailable.
func (p *Publisher) PublishReconcile(ctx context.Context, orderID, paymentID, productID int64) error {
	return p.publish(ctx, ReconcileQueue, EventPaidButOutOfStock, orderID, paymentID, productID)
}

func (p *Publisher) publish(ctx context.Context, queue, evtType string, orderID, paymentID, productID int64) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(&OrderEvent{
		EventID:   uuid.NewString(),
		Type:      evtType,
		OrderID:   orderID,
		PaymentID: paymentID,
		ProductID: productID,
		At:        time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
