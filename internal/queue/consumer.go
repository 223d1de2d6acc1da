package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains the notification queues and hands each message to a
// Mailer.  Messages that cannot be decoded or mailed are rejected without
// requeue so a poison message cannot spin the loop.
type Consumer struct {
	url    string
	mailer Mailer
	log    *zap.Logger
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, mailer Mailer, log *zap.Logger) *Consumer {
	return &Consumer{url: url, mailer: mailer, log: log}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := dial(ctx, c.url, DialTimeout)
		if err != nil {
			c.log.Warn("consumer: dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("consumer: set QoS failed", zap.Error(err))
	}

	issued, err := c.subscribe(ch, TicketIssuedQueue)
	if err != nil {
		return err
	}
	announcements, err := c.subscribe(ch, AnnouncementQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-issued:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.handle(ctx, TicketIssuedQueue, d.Body))
		case d, ok := <-announcements:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.handle(ctx, AnnouncementQueue, d.Body))
		}
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", name, err)
	}
	msgs, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", name, err)
	}
	return msgs, nil
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.log.Error("consumer: handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// handle decodes body according to the queue it came from and mails it.
func (c *Consumer) handle(ctx context.Context, queueName string, body []byte) error {
	var m Mail
	switch queueName {
	case TicketIssuedQueue:
		var ev TicketIssuedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.Email == "" {
			return errors.New("ticket event without email")
		}
		var err error
		if m, err = ticketIssuedMail(ev); err != nil {
			return err
		}
	case AnnouncementQueue:
		var ev AnnouncementEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if len(ev.Recipients) == 0 {
			return errors.New("announcement without recipients")
		}
		m = announcementMail(ev)
	default:
		return fmt.Errorf("unknown queue %q", queueName)
	}
	return c.mailer.Send(ctx, m)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
