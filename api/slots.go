package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/medlaw-booking/internal/service/slots"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultSlotDays = 7

type SlotHandler struct {
	service  slots.SlotUseCase
	location *time.Location
	log      *zap.Logger
	now      func() time.Time
}

func NewSlotHandler(service slots.SlotUseCase, location *time.Location, log *zap.Logger) *SlotHandler {
	return &SlotHandler{service: service, location: location, log: log, now: time.Now}
}

func (h *SlotHandler) Register(router *gin.RouterGroup) {
	router.GET("/slots", h.list)
}

func (h *SlotHandler) list(c *gin.Context) {
	from, err := h.parseFrom(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, expected YYYY-MM-DD"})
		return
	}

	days := defaultSlotDays
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
	}

	available, err := h.service.ListAvailable(c.Request.Context(), from, days)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": available})
}

func (h *SlotHandler) parseFrom(raw string) (time.Time, error) {
	if raw == "" {
		now := h.now().In(h.location)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location), nil
	}
	return time.ParseInLocation("2006-01-02", raw, h.location)
}
