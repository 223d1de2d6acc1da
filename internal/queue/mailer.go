package queue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/event-checkin/internal/qr"
)

// Attachment is a file attached to an outbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mail is one outbound email.
type Mail struct {
	To          []string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Mailer delivers email.  The real delivery provider lives outside this
// service; LogMailer is the default.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes each mail to the log instead of sending it.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer returns a LogMailer writing to log.
func NewLogMailer(log *zap.Logger) *LogMailer { return &LogMailer{log: log} }

// Send logs m.
func (l *LogMailer) Send(_ context.Context, m Mail) error {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Filename)
	}
	l.log.Info("mail",
		zap.Strings("to", m.To),
		zap.String("subject", m.Subject),
		zap.Strings("attachments", names),
	)
	return nil
}

func ticketIssuedMail(ev TicketIssuedEvent) (Mail, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYour registration for %s is confirmed!\n\n", ev.Name, ev.EventTitle)
	b.WriteString("Event Details:\n")
	fmt.Fprintf(&b, "- Date: %s\n- Location: %s\n- Ticket ID: %s\n\n", ev.EventDate, ev.EventLocation, ev.TicketID)
	b.WriteString("Please show the attached QR code at the event for check-in.\n\nSee you there!\n")
	m := Mail{
		To:      []string{ev.Email},
		Subject: "Your ticket for " + ev.EventTitle,
		Text:    b.String(),
	}
	png, err := qr.PNG(ev.TicketID)
	if err != nil {
		return m, err
	}
	m.Attachments = append(m.Attachments, Attachment{
		Filename:    "ticket-qr.png",
		ContentType: "image/png",
		Data:        png,
	})
	return m, nil
}

func announcementMail(ev AnnouncementEvent) Mail {
	return Mail{
		To:      ev.Recipients,
		Subject: ev.EventTitle + ": " + ev.Subject,
		Text:    ev.Message + "\n\n---\nThis announcement is for " + ev.EventTitle,
	}
}
