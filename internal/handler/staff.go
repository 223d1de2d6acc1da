package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/service"
)

// VerifyHandler serves ticket check-in at the door.
type VerifyHandler struct {
	CheckIn *service.CheckInService
}

// NewVerifyHandler returns a VerifyHandler.
func NewVerifyHandler(s *service.CheckInService) *VerifyHandler {
	return &VerifyHandler{CheckIn: s}
}

type verifyReq struct {
	TicketID string `json:"ticketId"`
}

// Verify checks a ticket in.  A second scan answers 409 so staff can tell
// "already used" apart from "unknown ticket".
func (h *VerifyHandler) Verify(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := h.CheckIn.CheckIn(c.Request().Context(), req.TicketID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OK", "ticket": t})
}

// AdminHandler serves staff account management.
type AdminHandler struct {
	Auth *service.AuthService
}

// NewAdminHandler returns an AdminHandler.
func NewAdminHandler(a *service.AuthService) *AdminHandler {
	return &AdminHandler{Auth: a}
}

type staffPatchReq struct {
	Role   *string `json:"role" validate:"omitempty,oneof=admin organizer"`
	Active *bool   `json:"active"`
}

// ListUsers returns all staff accounts.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.Auth.ListStaff(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser adds a staff account.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req staffReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Auth.CreateStaff(c.Request().Context(), service.StaffInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// UpdateUser changes role or active flag.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req staffPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Auth.UpdateStaff(c.Request().Context(), c.Param("id"), service.StaffPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// AnnouncementHandler serves organizer announcements.
type AnnouncementHandler struct {
	Announcements *service.AnnouncementService
}

// NewAnnouncementHandler returns an AnnouncementHandler.
func NewAnnouncementHandler(s *service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{Announcements: s}
}

type announcementReq struct {
	EventID string `json:"eventId"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Send queues an announcement to everyone registered for the event.
func (h *AnnouncementHandler) Send(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req announcementReq
	if err := bind(c, &req); err != nil {
		return err
	}
	n, err := h.Announcements.Announce(c.Request().Context(), service.AnnouncementInput(req), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"message":        fmt.Sprintf("Announcement sent to %d recipient(s)", n),
		"recipientCount": n,
	})
}

// ReportHandler serves attendance exports.
type ReportHandler struct {
	Reports *service.ReportService
}

// NewReportHandler returns a ReportHandler.
func NewReportHandler(s *service.ReportService) *ReportHandler {
	return &ReportHandler{Reports: s}
}

// ExportCSV downloads the attendee list of an event.
func (h *ReportHandler) ExportCSV(c echo.Context) error {
	eventID := c.Param("eventId")
	data, _, err := h.Reports.ExportCSV(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="event-%s-report.csv"`, eventID))
	return c.Blob(http.StatusOK, "text/csv", data)
}
