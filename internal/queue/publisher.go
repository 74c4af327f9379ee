package queue

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends notification events to RabbitMQ. Each publish opens
// a short-lived connection; the notification volume is low and this
// keeps the publisher free of reconnect state.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

func (p *Publisher) publish(ctx context.Context, queueName string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("queue: marshal %s event: %v", queueName, err)
		return
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("queue: dial for %s: %v", queueName, err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("queue: channel for %s: %v", queueName, err)
		return
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("queue: declare %s: %v", queueName, err)
		return
	}

	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		log.Printf("queue: publish %s: %v", queueName, err)
	}
}

func (p *Publisher) BookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) {
	p.publish(ctx, BookingConfirmedQueue, ev)
}

func (p *Publisher) BookingCancelled(ctx context.Context, ev BookingCancelledEvent) {
	p.publish(ctx, BookingCancelledQueue, ev)
}

func (p *Publisher) PasswordResetRequested(ctx context.Context, ev PasswordResetRequestedEvent) {
	p.publish(ctx, PasswordResetRequestedQueue, ev)
}
