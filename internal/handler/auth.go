package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kartmania/track-reservation/internal/repository"
	"github.com/kartmania/track-reservation/internal/utils"
)

// AuthHandler implements staff authentication.  Customers never log in:
// their checkout sessions are scoped by reservation tokens issued when a
// reservation is created.
type AuthHandler struct {
	Admins   *repository.AdminRepo
	Secret   string
	TokenTTL time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(admins *repository.AdminRepo, secret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{Admins: admins, Secret: secret, TokenTTL: tokenTTL}
}

// AdminLogin handles POST /v1/auth/admin/login.  It validates the staff
// credentials and returns a short-lived ADMIN token.  Unknown accounts
// and wrong passwords produce the same 401 so nothing leaks about which
// accounts exist.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	admin, err := h.Admins.FindByEmail(c.Request().Context(), body.Email)
	if err != nil {
		if err == repository.ErrAdminNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return writeBookingError(c, err)
	}
	if !utils.CheckPassword(admin.PasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tok, err := utils.NewAdminToken(h.Secret, admin.ID, h.TokenTTL)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Value,
		"expires_at":   tok.Exp.Format(time.RFC3339),
		"name":         admin.Name,
	})
}
