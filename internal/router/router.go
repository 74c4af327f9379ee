// Package router wires the HTTP routes to their handlers and
// middleware.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// Deps carries everything the routes need.
type Deps struct {
	DB      *sql.DB
	Redis   *redis.Client
	Auth    *service.AuthService
	Hotel   *handler.HotelHandler
	Booking *handler.BookingHandler
	AuthH   *handler.AuthHandler
	User    *handler.UserHandler
}

// New builds the Echo instance with all routes mounted.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(e)
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), d.Redis))

	e.GET("/health", handler.Health(d.DB))

	// Public
	auth := e.Group("/auth")
	auth.POST("/register", d.AuthH.Register)
	auth.POST("/login", d.AuthH.Login)
	auth.POST("/mfa/verify", d.AuthH.VerifyMFA)
	auth.POST("/refresh", d.AuthH.Refresh)
	auth.POST("/password/forgot", d.AuthH.ForgotPassword)
	auth.POST("/password/reset", d.AuthH.ResetPassword)

	cache := middleware.ResponseCache(config.LoadCacheConfig(), d.Redis)
	e.GET("/hotels", d.Hotel.List, cache)
	e.GET("/hotels/:id", d.Hotel.Get, cache)
	e.GET("/hotels/:id/rooms", d.Hotel.Rooms, cache)
	e.GET("/rooms/:id", d.Hotel.Room)

	// Authenticated
	authed := e.Group("", middleware.RequireAuth(d.Auth))
	authed.GET("/users/me", d.User.Me)
	authed.PUT("/users/me", d.User.UpdateProfile)
	authed.POST("/users/me/mfa/enable", d.User.EnableMFA)
	authed.POST("/users/me/mfa/disable", d.User.DisableMFA)

	authed.POST("/bookings", d.Booking.Create)
	authed.GET("/bookings", d.Booking.List)
	authed.GET("/bookings/:id", d.Booking.Get)
	authed.DELETE("/bookings/:id", d.Booking.Cancel)
	authed.GET("/bookings/:id/verification-token", d.Booking.VerificationToken)

	// Hotel staff
	staff := authed.Group("", middleware.RequireRole(model.RoleHotelAdmin))
	staff.PUT("/hotels/:id", d.Hotel.Update)
	staff.POST("/hotels/:id/rooms", d.Hotel.CreateRoom)
	staff.PUT("/rooms/:id", d.Hotel.UpdateRoom)
	staff.DELETE("/rooms/:id", d.Hotel.DeleteRoom)
	staff.POST("/bookings/verify", d.Booking.Verify)
	staff.GET("/admin/bookings/:id", d.Booking.AdminGet)

	// Global admins
	root := authed.Group("", middleware.RequireRole(model.RoleGlobalAdmin))
	root.POST("/hotels", d.Hotel.Create)
	root.POST("/hotels/:id/admins", d.Hotel.AssignAdmin)
	root.DELETE("/hotel-admins/:userID", d.Hotel.RemoveAdmin)
	root.GET("/admin/users", d.User.List)

	return e
}

// errorHandler renders every *echo.HTTPError as {"error": message}.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he, ok := err.(*echo.HTTPError)
		if !ok {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}
		if c.Request().Method == "HEAD" {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, map[string]any{"error": he.Message})
	}
}
