package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/service"
)

// EventHandler serves the event catalog.
type EventHandler struct {
	Events *service.EventService
}

// NewEventHandler returns an EventHandler.
func NewEventHandler(s *service.EventService) *EventHandler {
	return &EventHandler{Events: s}
}

// eventReq leaves absent fields nil so updates only touch what was sent.
// attendeesCount is deliberately not accepted.
type eventReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
	Capacity    *int    `json:"capacity" validate:"omitempty,min=0"`
	Status      *string `json:"status" validate:"omitempty,oneof=upcoming ongoing completed"`
}

func (r eventReq) input() service.EventInput {
	return service.EventInput{
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Location:    r.Location,
		Capacity:    r.Capacity,
		Status:      r.Status,
	}
}

// List returns every event.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Events.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
	ev, err := h.Events.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// Create adds an event.
func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ev, err := h.Events.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ev)
}

// Update merges the request into an event.
func (h *EventHandler) Update(c echo.Context) error {
	var req eventReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ev, err := h.Events.Update(c.Request().Context(), c.Param("id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// Delete removes an event without tickets.
func (h *EventHandler) Delete(c echo.Context) error {
	if err := h.Events.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event deleted"})
}
