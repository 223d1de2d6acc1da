package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/service"
)

// AuthHandler serves sign-up, login and staff account creation.
type AuthHandler struct {
	Auth *service.AuthService
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

type signUpReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Company  string `json:"company"`
	Password string `json:"password" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

type staffReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin organizer"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type sessionResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      string    `json:"role"`
	User      any       `json:"user"`
}

func toSessionResp(s service.Session) sessionResp {
	return sessionResp{Token: s.Token.Value, ExpiresAt: s.Token.ExpiresAt, Role: s.Role, User: s.Principal}
}

// SignUp creates an attendee account: 201 {token, role, user}.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.Auth.SignUp(c.Request().Context(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Company:  req.Company,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSessionResp(sess))
}

// Login accepts an email or a username.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" {
		return badRequest("email or username is required")
	}
	sess, err := h.Auth.Login(c.Request().Context(), identifier, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResp(sess))
}

// RegisterStaff creates an admin or organizer account.  Mounted behind
// the admin role.
func (h *AuthHandler) RegisterStaff(c echo.Context) error {
	var req staffReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Auth.CreateStaff(c.Request().Context(), service.StaffInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "created", "user": u})
}
