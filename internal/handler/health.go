package handler // package handler contains the HTTP endpoint implementations

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health handles GET /healthz.  Load balancers and monitoring probes use
// it to verify the service is up.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
