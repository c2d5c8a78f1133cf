package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps service errors to status codes. Internal details never
// reach the client.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var (
		vErr  *domain.ValidationError
		rlErr *domain.RateLimitError
		pErr  *domain.PersistenceError
	)

	switch {
	case errors.As(err, &rlErr):
		secs := rlErr.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      "Too many requests",
			"message":    "You have made too many booking requests. Please try again later.",
			"retryAfter": secs,
		})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, domain.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Selected time slot was not found"})
	case errors.Is(err, domain.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "Selected time slot is no longer available"})
	case errors.Is(err, domain.ErrNoEventTypes):
		log.Error("no event types configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Booking is not available right now"})
	case errors.As(err, &pErr):
		log.Error("persistence failure", zap.String("op", pErr.Op), zap.Error(pErr.Err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
	default:
		log.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
