package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends notification events to RabbitMQ.  It keeps one
// connection, redialing lazily after the broker drops it, and opens a
// short-lived channel per message.  Messages are persistent.
type Publisher struct {
	url         string
	log         *zap.Logger
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewPublisher returns a publisher for the broker at url.  No connection
// is made until the first publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log, dialTimeout: DialTimeout}
}

// DialTimeout bounds one broker connect attempt, handshake included.
const DialTimeout = 3 * time.Second

// dial connects to url, giving up after timeout or when ctx expires,
// whichever comes first.
func dial(ctx context.Context, url string, timeout time.Duration) (*amqp.Connection, error) {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// TicketIssued publishes ev to the ticket.issued queue.
func (p *Publisher) TicketIssued(ctx context.Context, ev TicketIssuedEvent) error {
	return p.publish(ctx, TicketIssuedQueue, ev)
}

// Announcement publishes ev to the event.announcement queue.
func (p *Publisher) Announcement(ctx context.Context, ev AnnouncementEvent) error {
	return p.publish(ctx, AnnouncementQueue, ev)
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// connection returns the shared connection, dialing without holding the
// lock so a stalled broker does not queue every publisher behind one dial.
func (p *Publisher) connection(ctx context.Context) (*amqp.Connection, error) {
	p.mu.Lock()
	if c := p.conn; c != nil && !c.IsClosed() {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	conn, err := dial(ctx, p.url, p.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		_ = conn.Close()
		return p.conn, nil
	}
	p.conn = conn
	return conn, nil
}

func (p *Publisher) publish(ctx context.Context, queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", queueName, err)
	}
	conn, err := p.connection(ctx)
	if err != nil {
		p.log.Warn("rabbitmq unavailable", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", queueName, err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", queueName, err)
	}
	return nil
}

// LogPublisher stands in for Publisher when the broker is disabled: it
// records each event in the log and hands it straight to a Mailer.
type LogPublisher struct {
	log    *zap.Logger
	mailer Mailer
}

// NewLogPublisher returns a publisher that delivers in-process.  mailer
// may be nil, in which case events are only logged.
func NewLogPublisher(log *zap.Logger, mailer Mailer) *LogPublisher {
	return &LogPublisher{log: log, mailer: mailer}
}

// TicketIssued logs ev and mails the confirmation.
func (l *LogPublisher) TicketIssued(ctx context.Context, ev TicketIssuedEvent) error {
	l.log.Info("ticket issued", zap.String("ticket_id", ev.TicketID), zap.String("event_id", ev.EventID))
	if l.mailer == nil {
		return nil
	}
	m, err := ticketIssuedMail(ev)
	if err != nil {
		return err
	}
	return l.mailer.Send(ctx, m)
}

// Announcement logs ev and mails it.
func (l *LogPublisher) Announcement(ctx context.Context, ev AnnouncementEvent) error {
	l.log.Info("announcement", zap.String("event_id", ev.EventID), zap.Int("recipients", len(ev.Recipients)))
	if l.mailer == nil {
		return nil
	}
	return l.mailer.Send(ctx, announcementMail(ev))
}
