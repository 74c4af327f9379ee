package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// UserHandler exposes the authenticated user's own account.
type UserHandler struct {
	auth  *service.AuthService
	users *repository.UserRepo
}

func NewUserHandler(auth *service.AuthService, users *repository.UserRepo) *UserHandler {
	return &UserHandler{auth: auth, users: users}
}

func (h *UserHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(http.StatusOK, newUserResponse(u))
}

type updateProfileRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
}

// UpdateProfile edits name and phone number. Email and role are fixed.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = req.PhoneNumber
	}

	if err := h.users.UpdateProfile(c.Request().Context(), u.ID, u.FirstName, u.LastName, u.PhoneNumber); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newUserResponse(u))
}

// List is the global-admin user directory, optionally narrowed by a
// substring of email or name via ?q=.
func (h *UserHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	users, total, err := h.auth.SearchUsers(c.Request().Context(), c.QueryParam("q"), page, pageSize)
	if err != nil {
		return httpError(err)
	}
	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

type enableMFARequest struct {
	Secret   string `json:"secret"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// EnableMFA enrolls a TOTP secret. The client generates the secret and
// proves possession by sending a current code for it.
func (h *UserHandler) EnableMFA(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	var req enableMFARequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Secret == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "secret is required")
	}

	if err := h.auth.EnableMFA(c.Request().Context(), u, req.Secret, req.Code, req.Password); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "mfa enabled"})
}

type disableMFARequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (h *UserHandler) DisableMFA(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	var req disableMFARequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.auth.DisableMFA(c.Request().Context(), u, req.Code, req.Password); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "mfa disabled"})
}
