package queue

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the notification queues. The real deployment would
// hand messages to a mail/SMS provider; this worker appends each event
// to logs/notifications.log so the delivery pipeline can be observed
// end to end.
type Consumer struct {
	url     string
	logPath string
}

func NewConsumer(url string) *Consumer {
	return &Consumer{url: url, logPath: filepath.Join("logs", "notifications.log")}
}

func (c *Consumer) record(queueName string, body []byte) {
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		log.Printf("queue: create log dir: %v", err)
		return
	}
	f, err := os.OpenFile(c.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("queue: open notification log: %v", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s %s\n", time.Now().UTC().Format(time.RFC3339), queueName, body)
}

// Run consumes until ctx is cancelled, reconnecting with a fixed
// backoff when the broker drops the connection.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if err := c.consume(ctx); err != nil {
			log.Printf("queue: consumer stopped: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	queues := []string{BookingConfirmedQueue, BookingCancelledQueue, PasswordResetRequestedQueue}
	deliveries := make(chan amqp.Delivery)
	for _, name := range queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return err
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return err
		}
		go func(name string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				deliveries <- d
			}
		}(name, msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			return err
		case d := <-deliveries:
			c.record(d.RoutingKey, d.Body)
			if err := d.Ack(false); err != nil {
				log.Printf("queue: ack %s: %v", d.RoutingKey, err)
			}
		}
	}
}
