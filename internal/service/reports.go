package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/store"
)

// ReportService renders attendance reports.
type ReportService struct {
	store *store.Store
}

// NewReportService returns a ReportService.
func NewReportService(st *store.Store) *ReportService {
	return &ReportService{store: st}
}

var csvHeader = []string{"Name", "Email", "Ticket ID", "Status", "Checked In At"}

// ExportCSV returns the attendee list of an event as CSV along with the
// event title.
func (s *ReportService) ExportCSV(ctx context.Context, eventID string) ([]byte, string, error) {
	var (
		title   string
		tickets []model.Ticket
	)
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		ev := snap.Event(eventID)
		if ev == nil {
			return notFound("event not found")
		}
		title = ev.Title
		tickets = snap.TicketsWhere(func(t *model.Ticket) bool { return t.EventID == eventID })
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, "", fmt.Errorf("write csv: %w", err)
	}
	for _, t := range tickets {
		checkedIn := ""
		if t.CheckedInAt != nil {
			checkedIn = t.CheckedInAt.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{t.Name, t.Email, t.ID, t.Status, checkedIn}); err != nil {
			return nil, "", fmt.Errorf("write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), title, nil
}
