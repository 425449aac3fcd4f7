package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxWait caps long-polling on GET /api/v1/views/:id
const maxWait = 10 * time.Second

var errInvalidWait = errors.New("invalid wait duration")

// viewIDParam returns the canonical form of the :id path parameter.
// View ids are UUIDs; anything else cannot name a view.
func viewIDParam(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// waitParam parses ?wait as a Go duration, clamped to maxWait.
// Missing means no waiting.
func waitParam(c *gin.Context) (time.Duration, error) {
	raw := c.Query("wait")
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errInvalidWait, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: must not be negative", errInvalidWait)
	}
	return min(d, maxWait), nil
}

func contextWithWait(c *gin.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), wait)
}

// sanitizeValidationError returns a message that is safe to show clients.
// Parser internals never leave the service.
func sanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, errInvalidWait) {
		return "Invalid wait duration"
	}
	msg := err.Error()
	if len(msg) < 100 && !strings.ContainsAny(msg, "\"{}:") {
		return msg
	}
	return "Invalid request"
}
