package health

import (
	"context"
	"net/http"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
	"github.com/ethanbaker/voice-assistant/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency of the server is usable
type Check func(ctx context.Context) error

// checkTimeout bounds a single readiness check
const checkTimeout = 5 * time.Second

// Return status of the API
func getStatus(c *gin.Context) {
	res := api_types.NewSuccessResponse("OK", nil)
	c.JSON(res.AsGinResponse())
}

// getReadiness runs every check and reports 503 if any of them fails
func getReadiness(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := sdk.HealthResponse{Ready: true, Checks: make(map[string]string, len(checks))}

		for name, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
			err := check(ctx)
			cancel()

			if err != nil {
				out.Ready = false
				out.Checks[name] = err.Error()
				continue
			}
			out.Checks[name] = "ok"
		}

		if !out.Ready {
			c.JSON(sdk.NewErrorResponse(http.StatusServiceUnavailable, "Not ready", out).AsGinResponse())
			return
		}

		c.JSON(sdk.NewSuccessResponse("Ready", out).AsGinResponse())
	}
}
