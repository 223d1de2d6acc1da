// Package router builds the echo server and registers the API routes.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/event-checkin/internal/config"
	"github.com/iliyamo/event-checkin/internal/handler"
	"github.com/iliyamo/event-checkin/internal/logger"
	"github.com/iliyamo/event-checkin/internal/middleware"
	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/service"
	"github.com/iliyamo/event-checkin/internal/store"
)

// Deps is everything the routes need.  Redis may be nil.
type Deps struct {
	Log       *zap.Logger
	Store     *store.Store
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig

	Auth          *service.AuthService
	Events        *service.EventService
	Tickets       *service.TicketService
	CheckIn       *service.CheckInService
	Announcements *service.AnnouncementService
	Reports       *service.ReportService
}

// New returns an echo server with the shared middleware stack and every
// route registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))

	cache := middleware.NewResponseCache(d.Cache, d.Redis, d.Log)
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis)

	RegisterRoutes(e, d.Store)
	api := e.Group("/api")
	RegisterAuth(api, handler.NewAuthHandler(d.Auth), d.Auth, limiter)
	RegisterEvents(api, handler.NewEventHandler(d.Events), d.Auth, cache)
	RegisterRegistrations(api, handler.NewRegistrationHandler(d.Tickets, d.Log), d.Auth, limiter, cache)
	RegisterStaff(api, d)
	return e
}

// RegisterRoutes registers unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo, st *store.Store) {
	e.GET("/healthz", handler.Health(st))
}

// RegisterAuth mounts /auth.  Sign-up and login are rate limited; staff
// creation requires an admin session.
func RegisterAuth(api *echo.Group, h *handler.AuthHandler, a middleware.Authenticator, limiter echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/signup", h.SignUp, limiter)
	g.POST("/login", h.Login, limiter)
	g.POST("/register", h.RegisterStaff, middleware.Auth(a), middleware.RequireRole(model.RoleAdmin))
}

// RegisterEvents mounts /events.  Reads are public and cached; writes
// need an organizer or admin and purge the cache.
func RegisterEvents(api *echo.Group, h *handler.EventHandler, a middleware.Authenticator, cache *middleware.ResponseCache) {
	g := api.Group("/events", cache.PurgeOnWrite())
	g.GET("", h.List, cache.Middleware())
	g.GET("/:id", h.Get, cache.Middleware())

	staff := []echo.MiddlewareFunc{middleware.Auth(a), middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin)}
	g.POST("", h.Create, staff...)
	g.PUT("/:id", h.Update, staff...)
	g.DELETE("/:id", h.Delete, staff...)
}

// RegisterRegistrations mounts /registrations.  Registering works with
// or without a session; everything else needs one.  Ticket writes move
// attendee counts, so they purge the event cache.
func RegisterRegistrations(api *echo.Group, h *handler.RegistrationHandler, a middleware.Authenticator, limiter echo.MiddlewareFunc, cache *middleware.ResponseCache) {
	g := api.Group("/registrations", cache.PurgeOnWrite())
	authed := middleware.Auth(a)

	g.GET("/my-tickets", h.MyTickets, authed)
	g.GET("/:eventId", h.ListForEvent, authed, middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	g.POST("/:eventId/register", h.Register, middleware.OptionalAuth(a), limiter)
	g.PATCH("/:ticketId", h.Update, authed)
	g.DELETE("/:ticketId", h.Cancel, authed)
}

// RegisterStaff mounts check-in, admin, announcement and report routes.
func RegisterStaff(api *echo.Group, d Deps) {
	authed := middleware.Auth(d.Auth)
	staff := middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin)

	api.POST("/verify", handler.NewVerifyHandler(d.CheckIn).Verify, authed, staff)

	admin := handler.NewAdminHandler(d.Auth)
	ag := api.Group("/admin", authed, middleware.RequireRole(model.RoleAdmin))
	ag.GET("/users", admin.ListUsers)
	ag.POST("/users", admin.CreateUser)
	ag.PATCH("/users/:id", admin.UpdateUser)

	api.POST("/announcements", handler.NewAnnouncementHandler(d.Announcements).Send, authed, staff)
	api.GET("/reports/:eventId/export", handler.NewReportHandler(d.Reports).ExportCSV, authed, staff)
}
