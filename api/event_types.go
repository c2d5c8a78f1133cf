package api

import (
	"net/http"

	"github.com/Domenick1991/medlaw-booking/internal/service/eventtypes"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventTypeHandler struct {
	service eventtypes.EventTypeUseCase
	log     *zap.Logger
}

func NewEventTypeHandler(service eventtypes.EventTypeUseCase, log *zap.Logger) *EventTypeHandler {
	return &EventTypeHandler{service: service, log: log}
}

func (h *EventTypeHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
}

func (h *EventTypeHandler) list(c *gin.Context) {
	types, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventTypes": types})
}
