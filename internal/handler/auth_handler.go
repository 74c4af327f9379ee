package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// AuthHandler exposes registration, login, MFA and password reset.
type AuthHandler struct {
	auth  *service.AuthService
	debug bool
}

func NewAuthHandler(auth *service.AuthService, debug bool) *AuthHandler {
	return &AuthHandler{auth: auth, debug: debug}
}

type registerRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Role        int     `json:"role"` // honored only in debug mode
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	u, pair, err := h.auth.Register(c.Request().Context(), service.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"user":          newUserResponse(u),
		"token":         pair.Token,
		"refresh_token": pair.RefreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	if res.MFARequired {
		// Not a failure, but not a login either: the client must come
		// back through /auth/mfa/verify with this challenge.
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":     "mfa_required",
			"mfa_token": res.MFAToken,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user":          newUserResponse(res.User),
		"token":         res.Pair.Token,
		"refresh_token": res.Pair.RefreshToken,
	})
}

type verifyMFARequest struct {
	MFAToken string `json:"mfa_token"`
	Code     string `json:"code"`
}

func (h *AuthHandler) VerifyMFA(c echo.Context) error {
	var req verifyMFARequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, pair, err := h.auth.VerifyMFA(c.Request().Context(), req.MFAToken, req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user":          newUserResponse(u),
		"token":         pair.Token,
		"refresh_token": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	pair, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token":         pair.Token,
		"refresh_token": pair.RefreshToken,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword mints a reset token and queues the notification. In
// debug mode the token is echoed back so the flow can be exercised
// without a mail worker.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reset, err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return httpError(err)
	}
	if h.debug {
		c.Response().Header().Set("X-Debug-Token", reset)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "password reset requested"})
}

type resetPasswordRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.ResetToken, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "password updated"})
}
