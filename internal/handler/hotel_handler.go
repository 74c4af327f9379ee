package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// HotelHandler exposes the public hotel/room browse endpoints and the
// staff-facing hotel management endpoints.
type HotelHandler struct {
	hotels   *repository.HotelRepo
	rooms    *repository.RoomRepo
	admins   *repository.HotelAdminRepo
	users    *repository.UserRepo
	access   *service.AccessChecker
	bookings *service.BookingService
}

func NewHotelHandler(hotels *repository.HotelRepo, rooms *repository.RoomRepo,
	admins *repository.HotelAdminRepo, users *repository.UserRepo,
	access *service.AccessChecker, bookings *service.BookingService) *HotelHandler {
	return &HotelHandler{hotels: hotels, rooms: rooms, admins: admins, users: users,
		access: access, bookings: bookings}
}

func (h *HotelHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	hotels, err := h.hotels.List(c.Request().Context(), page, pageSize)
	if err != nil {
		return httpError(err)
	}
	total, err := h.hotels.Count(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	items := make([]hotelResponse, 0, len(hotels))
	for _, hotel := range hotels {
		items = append(items, newHotelResponse(hotel))
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *HotelHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	hotel, err := h.hotels.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newHotelResponse(hotel))
}

type roomWithAvailability struct {
	roomResponse
	Available bool `json:"available"`
}

// Rooms lists a hotel's rooms with optional type/price filters. Each
// room carries whether it is free tonight.
func (h *HotelHandler) Rooms(c echo.Context) error {
	hotelID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.hotels.GetByID(ctx, hotelID); err != nil {
		return httpError(err)
	}

	filter := repository.RoomFilter{HotelID: &hotelID}
	filter.Page, filter.PageSize = pageParams(c)
	if v := c.QueryParam("type"); v != "" {
		filter.Type = &v
	}
	if v := c.QueryParam("price_min"); v != "" {
		min := float64(queryInt(c, "price_min", 0))
		filter.PriceMin = &min
	}
	if v := c.QueryParam("price_max"); v != "" {
		max := float64(queryInt(c, "price_max", 0))
		filter.PriceMax = &max
	}

	rooms, total, err := h.rooms.Search(ctx, filter)
	if err != nil {
		return httpError(err)
	}
	items := make([]roomWithAvailability, 0, len(rooms))
	for _, room := range rooms {
		free, err := h.bookings.AvailableNow(ctx, room.ID)
		if err != nil {
			return httpError(err)
		}
		items = append(items, roomWithAvailability{newRoomResponse(room), free})
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize})
}

// Room returns one room and its availability, for tonight by default or
// for an explicit ?from=YYYY-MM-DD&to=YYYY-MM-DD range.
func (h *HotelHandler) Room(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	room, err := h.rooms.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}

	var free bool
	fromStr, toStr := c.QueryParam("from"), c.QueryParam("to")
	if fromStr != "" || toStr != "" {
		from, err1 := time.Parse("2006-01-02", fromStr)
		to, err2 := time.Parse("2006-01-02", toStr)
		if err1 != nil || err2 != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dates must be YYYY-MM-DD")
		}
		free, err = h.bookings.Available(ctx, id, from, to)
	} else {
		free, err = h.bookings.AvailableNow(ctx, id)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, roomWithAvailability{newRoomResponse(room), free})
}

type hotelRequest struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description *string `json:"description"`
}

func (h *HotelHandler) Create(c echo.Context) error {
	var req hotelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and address are required")
	}

	hotel := model.Hotel{Name: req.Name, Address: req.Address, Description: req.Description}
	if err := h.hotels.Create(c.Request().Context(), &hotel); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, newHotelResponse(hotel))
}

func (h *HotelHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	caller, _ := middleware.CurrentUser(c)
	ctx := c.Request().Context()
	if err := h.access.CheckHotel(ctx, caller, id); err != nil {
		return httpError(err)
	}

	hotel, err := h.hotels.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}
	var req hotelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name != "" {
		hotel.Name = req.Name
	}
	if req.Address != "" {
		hotel.Address = req.Address
	}
	if req.Description != nil {
		hotel.Description = req.Description
	}
	if err := h.hotels.Update(ctx, &hotel); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newHotelResponse(hotel))
}

type roomRequest struct {
	Type  string  `json:"type"`
	Price float64 `json:"price"`
}

func (h *HotelHandler) CreateRoom(c echo.Context) error {
	hotelID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	caller, _ := middleware.CurrentUser(c)
	ctx := c.Request().Context()
	if err := h.access.CheckHotel(ctx, caller, hotelID); err != nil {
		return httpError(err)
	}
	if _, err := h.hotels.GetByID(ctx, hotelID); err != nil {
		return httpError(err)
	}

	var req roomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Type == "" || req.Price <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "type and a positive price are required")
	}

	room := model.Room{HotelID: hotelID, Type: req.Type, Price: req.Price}
	if err := h.rooms.Create(ctx, &room); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, newRoomResponse(room))
}

func (h *HotelHandler) UpdateRoom(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	room, err := h.rooms.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}
	caller, _ := middleware.CurrentUser(c)
	if err := h.access.CheckHotel(ctx, caller, room.HotelID); err != nil {
		return httpError(err)
	}

	var req roomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Type != "" {
		room.Type = req.Type
	}
	if req.Price > 0 {
		room.Price = req.Price
	}
	if err := h.rooms.Update(ctx, &room); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newRoomResponse(room))
}

func (h *HotelHandler) DeleteRoom(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	room, err := h.rooms.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}
	caller, _ := middleware.CurrentUser(c)
	if err := h.access.CheckHotel(ctx, caller, room.HotelID); err != nil {
		return httpError(err)
	}

	if err := h.rooms.Delete(ctx, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type assignAdminRequest struct {
	UserID uint64 `json:"user_id"`
}

// AssignAdmin appoints a user as hotel staff. Global admins only; the
// user is promoted to HOTEL_ADMIN unless they already rank higher.
func (h *HotelHandler) AssignAdmin(c echo.Context) error {
	hotelID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req assignAdminRequest
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	ctx := c.Request().Context()
	if _, err := h.hotels.GetByID(ctx, hotelID); err != nil {
		return httpError(err)
	}
	u, err := h.users.GetByID(ctx, req.UserID)
	if err != nil {
		return httpError(err)
	}

	if _, err := h.admins.Assign(ctx, hotelID, u.ID); err != nil {
		return httpError(err)
	}
	if !u.Role.AtLeast(model.RoleHotelAdmin) {
		if err := h.users.UpdateRole(ctx, u.ID, model.RoleHotelAdmin); err != nil {
			return httpError(err)
		}
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"hotel_id": hotelID,
		"user_id":  u.ID,
	})
}

// RemoveAdmin revokes a user's hotel staff appointment and drops them
// back to the plain USER rank.
func (h *HotelHandler) RemoveAdmin(c echo.Context) error {
	userID, err := pathID(c, "userID")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return httpError(err)
	}

	if err := h.admins.Remove(ctx, u.ID); err != nil {
		return httpError(err)
	}
	if u.Role == model.RoleHotelAdmin {
		if err := h.users.UpdateRole(ctx, u.ID, model.RoleUser); err != nil {
			return httpError(err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}
