package middleware // package middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/kartmania/track-reservation/internal/utils"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxSubject = "subject"
	CtxRole    = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer token signed
// with the given secret and injects the subject and role claims into the
// request context.  Handlers read them back via c.Get(CtxSubject) and
// c.Get(CtxRole); the subject is normalised to uint64.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// JSON numbers decode as float64; subjects are numeric IDs.
			sub, ok := claims["sub"].(float64)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}
			role, _ := claims["role"].(string)

			c.Set(CtxSubject, uint64(sub))
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose token does not carry the ADMIN role.
// It must run after JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return requireRole(utils.RoleAdmin)
}

// RequireReservation rejects requests whose token is not a checkout
// session token.  It must run after JWTAuth.
func RequireReservation() echo.MiddlewareFunc {
	return requireRole(utils.RoleReservation)
}

func requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r, _ := c.Get(CtxRole).(string); r != role {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// Subject returns the authenticated token subject from the context.
func Subject(c echo.Context) uint64 {
	id, _ := c.Get(CtxSubject).(uint64)
	return id
}
