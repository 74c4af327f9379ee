package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// BookingHandler exposes the guest booking endpoints and the staff
// verification endpoints.
type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type createBookingRequest struct {
	RoomID   uint64 `json:"room_id"`
	CheckIn  string `json:"check_in"`  // YYYY-MM-DD
	CheckOut string `json:"check_out"` // YYYY-MM-DD
}

func (h *BookingHandler) Create(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RoomID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "room_id is required")
	}
	checkIn, err1 := time.Parse("2006-01-02", req.CheckIn)
	checkOut, err2 := time.Parse("2006-01-02", req.CheckOut)
	if err1 != nil || err2 != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "dates must be YYYY-MM-DD")
	}

	d, err := h.bookings.Book(c.Request().Context(), u.ID, req.RoomID, checkIn, checkOut)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, newBookingResponse(d))
}

var listTypes = map[string]repository.BookingType{
	"":          repository.BookingTypeAll,
	"ALL":       repository.BookingTypeAll,
	"PENDING":   repository.BookingTypePending,
	"ACTIVE":    repository.BookingTypeActive,
	"CANCELLED": repository.BookingTypeCancelled,
	"EXPIRED":   repository.BookingTypeExpired,
}

func (h *BookingHandler) List(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	typ, ok := listTypes[c.QueryParam("type")]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be one of PENDING, ACTIVE, CANCELLED, EXPIRED, ALL")
	}
	page, pageSize := pageParams(c)

	details, total, err := h.bookings.List(c.Request().Context(), u.ID, typ, page, pageSize)
	if err != nil {
		return httpError(err)
	}
	items := make([]bookingResponse, 0, len(details))
	for _, d := range details {
		items = append(items, newBookingResponse(d))
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// Get reads one booking; this is also where a paid PENDING booking
// advances to CONFIRMED.
func (h *BookingHandler) Get(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.bookings.Get(c.Request().Context(), u.ID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newBookingResponse(d))
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.bookings.Cancel(c.Request().Context(), u.ID, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "booking cancelled and refunded"})
}

// VerificationToken mints the short-lived proof a guest shows at the
// front desk.
func (h *BookingHandler) VerificationToken(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	proof, err := h.bookings.VerificationToken(c.Request().Context(), u.ID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"verification_token": proof})
}

type verifyBookingRequest struct {
	Token string `json:"token"`
}

// Verify redeems a guest's verification token. Staff only.
func (h *BookingHandler) Verify(c echo.Context) error {
	caller, _ := middleware.CurrentUser(c)
	var req verifyBookingRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	d, err := h.bookings.VerifyToken(c.Request().Context(), caller, req.Token)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newBookingResponse(d))
}

// AdminGet lets hotel staff inspect any booking for their hotel.
func (h *BookingHandler) AdminGet(c echo.Context) error {
	caller, _ := middleware.CurrentUser(c)
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.bookings.AdminGet(c.Request().Context(), caller, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newBookingResponse(d))
}
