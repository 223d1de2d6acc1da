package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/middleware"
	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/qr"
	"github.com/iliyamo/event-checkin/internal/service"
)

// RegistrationHandler serves ticket issuance, listing, edits and
// cancellation.
type RegistrationHandler struct {
	Tickets *service.TicketService
	Log     *zap.Logger
	// RenderQR turns a ticket id into an image data URL.
	RenderQR func(string) (string, error)
}

// NewRegistrationHandler returns a handler rendering QR codes with qr.DataURL.
func NewRegistrationHandler(s *service.TicketService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{Tickets: s, Log: log, RenderQR: qr.DataURL}
}

// Email is checked by the service once an attendee session has replaced it.
type registerReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

type ticketPatchReq struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Company *string `json:"company"`
}

// withQR attaches a QR rendering.  The ticket is already committed, so a
// rendering failure is logged and the ticket returned without it.
func (h *RegistrationHandler) withQR(t model.Ticket) model.TicketWithQR {
	out := model.TicketWithQR{Ticket: t}
	url, err := h.RenderQR(t.ID)
	if err != nil {
		h.Log.Warn("render qr failed", zap.String("ticket_id", t.ID), zap.Error(err))
		return out
	}
	out.QR = url
	return out
}

// ListForEvent returns all tickets of an event.  Staff only.
func (h *RegistrationHandler) ListForEvent(c echo.Context) error {
	tickets, err := h.Tickets.ListForEvent(c.Request().Context(), c.Param("eventId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tickets)
}

// Register issues a ticket.  Authentication is optional; an attendee
// session binds the ticket to the account.
func (h *RegistrationHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := h.Tickets.Register(c.Request().Context(), c.Param("eventId"), service.RegisterInput(req), principalPtr(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"ticket": h.withQR(t)})
}

// MyTickets lists the caller's tickets with QR codes.
func (h *RegistrationHandler) MyTickets(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	tickets, err := h.Tickets.ListMine(c.Request().Context(), p)
	if err != nil {
		return err
	}
	out := make([]model.TicketWithQR, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, h.withQR(t))
	}
	return c.JSON(http.StatusOK, out)
}

// Update edits the registrant fields of the caller's ticket.
func (h *RegistrationHandler) Update(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req ticketPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := h.Tickets.UpdateTicket(c.Request().Context(), c.Param("ticketId"), service.TicketPatch(req), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Cancel deletes the caller's ticket.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.Tickets.CancelTicket(c.Request().Context(), c.Param("ticketId"), p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func principalPtr(c echo.Context) *auth.Principal {
	if p, ok := middleware.PrincipalFrom(c); ok {
		return &p
	}
	return nil
}
