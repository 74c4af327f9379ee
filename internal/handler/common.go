// Package handler binds the HTTP surface to the services: request
// parsing, response shaping and the error-to-status mapping.
package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/paypal"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// httpError maps service and repository errors onto HTTP statuses.
// Anything unmapped is logged and reported as an opaque 500.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrHotelNotFound),
		errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrDateConflict),
		errors.Is(err, repository.ErrHotelAdminTaken),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrCancelPending),
		errors.Is(err, service.ErrStayStarted),
		errors.Is(err, service.ErrNotConfirmed),
		errors.Is(err, service.ErrStayNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrMFAAlreadyEnabled),
		errors.Is(err, service.ErrMFANotEnabled),
		errors.Is(err, service.ErrInvalidDates),
		errors.Is(err, service.ErrPastDates):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, paypal.ErrGateway):
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway error")
	default:
		log.Printf("internal error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// pageParams reads page/page_size with sane bounds.
func pageParams(c echo.Context) (page, pageSize int) {
	page = queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = queryInt(c, "page_size", 25)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}
	return page, pageSize
}

type userResponse struct {
	ID          uint64  `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Role        string  `json:"role"`
	MFAEnabled  bool    `json:"mfa_enabled"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role.String(),
		MFAEnabled:  u.MFAEnabled(),
	}
}

type bookingResponse struct {
	ID         uint64  `json:"id"`
	UserID     uint64  `json:"user_id"`
	RoomID     uint64  `json:"room_id"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	Nights     int     `json:"nights"`
	TotalPrice float64 `json:"total_price"`
	Status     string  `json:"status"`
	OrderID    *string `json:"order_id"`
	CaptureID  *string `json:"capture_id"`
}

func newBookingResponse(d service.BookingDetail) bookingResponse {
	r := bookingResponse{
		ID:         d.Booking.ID,
		UserID:     d.Booking.UserID,
		RoomID:     d.Booking.RoomID,
		CheckIn:    d.Booking.CheckIn.Format("2006-01-02"),
		CheckOut:   d.Booking.CheckOut.Format("2006-01-02"),
		Nights:     d.Booking.Nights(),
		TotalPrice: d.Booking.TotalPrice,
		Status:     d.Booking.Status.String(),
	}
	if d.Payment != nil {
		orderID := d.Payment.OrderID
		r.OrderID = &orderID
		r.CaptureID = d.Payment.CaptureID
	}
	return r
}

type hotelResponse struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description *string `json:"description"`
}

func newHotelResponse(h model.Hotel) hotelResponse {
	return hotelResponse{ID: h.ID, Name: h.Name, Address: h.Address, Description: h.Description}
}

type roomResponse struct {
	ID      uint64  `json:"id"`
	HotelID uint64  `json:"hotel_id"`
	Type    string  `json:"type"`
	Price   float64 `json:"price"`
}

func newRoomResponse(r model.Room) roomResponse {
	return roomResponse{ID: r.ID, HotelID: r.HotelID, Type: r.Type, Price: r.Price}
}

type pagedResponse struct {
	Items    any `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
