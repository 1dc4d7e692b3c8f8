package amqp

import (
	"fmt"
	"time"

	"fintrack/internal/events"

	"github.com/rabbitmq/amqp091-go"
)

// toPublishing wraps a ledger event in a persistent AMQP message. The event
// id doubles as the message id so consumers can drop redeliveries.
func toPublishing(ev events.Event) (amqp091.Publishing, error) {
	body, err := events.Encode(ev)
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    time.Now(),
		Headers:      amqp091.Table{"owner_id": ev.OwnerID},
		Body:         body,
	}, nil
}

// fromDelivery decodes the ledger event carried by d.
func fromDelivery(d amqp091.Delivery) (events.Event, error) {
	if d.ContentType != "" && d.ContentType != "application/json" {
		return events.Event{}, fmt.Errorf("unexpected content type %q", d.ContentType)
	}
	return events.Decode(d.Body)
}
