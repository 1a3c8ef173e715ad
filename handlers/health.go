package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// RegisterHealth mounts /health (liveness) and /ready. /ready answers 200 only
// when every check passes; failures are listed by name.
func RegisterHealth(r *gin.Engine, started time.Time, checks map[string]Check) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := make(map[string]bool, len(checks))
		errs := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = false
				errs[name] = err.Error()
				ready = false
				continue
			}
			deps[name] = true
		}

		body := gin.H{"deps": deps, "uptime": time.Since(started).Round(time.Second).String()}
		if !ready {
			body["status"] = "not_ready"
			body["errors"] = errs
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})
}
