package api

import (
	"net/http"

	"github.com/Domenick1991/medlaw-booking/internal/middleware"
	"github.com/Domenick1991/medlaw-booking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service booking.BookingUseCase
	log     *zap.Logger
}

type createBookingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*booking.CreateBookingResult
}

func NewBookingHandler(service booking.BookingUseCase, log *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
}

func (h *BookingHandler) create(c *gin.Context) {
	clientIP := middleware.ClientIP(c)

	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		// Unreadable bodies still count against the caller's limit.
		if err := h.service.CheckRateLimit(c.Request.Context(), clientIP); err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.ClientIP = clientIP

	result, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, createBookingResponse{
		Success:             true,
		Message:             "Booking created successfully",
		CreateBookingResult: result,
	})
}
