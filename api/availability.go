package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkrylov/tablebook/internal/service/reservation"
)

type AvailabilityHandler struct {
	service reservation.ReservationUseCase
}

func NewAvailabilityHandler(service reservation.ReservationUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/availability", h.get)
}

func (h *AvailabilityHandler) get(c *gin.Context) {
	page, err := h.service.Availability(c.Request.Context())
	if err != nil {
		log.Printf("availability: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The calendar could not be loaded. Please try again."})
		return
	}

	c.JSON(http.StatusOK, page)
}
