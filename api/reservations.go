package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkrylov/tablebook/internal/domain"
	"github.com/mkrylov/tablebook/internal/service/reservation"
)

const (
	kindValidation  = "ValidationError"
	kindDuplicate   = "DuplicateSubmission"
	kindCapacity    = "CapacityExceeded"
	kindContact     = "InvalidContact"
	kindLockTimeout = "LockTimeout"
	kindInternal    = "Internal"
	internalMsg     = "The reservation was not completed. Please try again."
)

type ReservationHandler struct {
	service reservation.ReservationUseCase
}

type createReservationRequest struct {
	Date          string `json:"date" binding:"required"`
	StartTime     string `json:"startTime" binding:"required"`
	NumberPersons int    `json:"numberPersons" binding:"required,gt=0"`
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"required"`
	Comment       string `json:"comment"`
}

type submitResponse struct {
	Accepted  bool                        `json:"accepted"`
	Table     *domain.Snapshot            `json:"table,omitempty"`
	ErrorKind string                      `json:"errorKind,omitempty"`
	Detail    string                      `json:"detail,omitempty"`
	Slots     []reservation.SlotShortfall `json:"slots,omitempty"`
}

func NewReservationHandler(service reservation.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.POST("/reservations", h.create)
}

func (h *ReservationHandler) create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, submitResponse{ErrorKind: kindValidation, Detail: err.Error()})
		return
	}

	snapshot, err := h.service.Submit(c.Request.Context(), reservation.SubmitInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		PartySize: req.NumberPersons,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Comment:   req.Comment,
	})
	if err != nil {
		status, resp := mapSubmitError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, submitResponse{Accepted: true, Table: snapshot})
}

// mapSubmitError turns the admission controller's error taxonomy into a
// structured response. Unexpected faults are logged and replaced with a
// generic retry message; the caller never sees a raw failure.
func mapSubmitError(err error) (int, submitResponse) {
	var validationErr *reservation.ValidationError
	var capacityErr *reservation.CapacityExceededError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, submitResponse{ErrorKind: kindValidation, Detail: validationErr.Error()}
	case errors.Is(err, reservation.ErrDuplicateSubmission):
		return http.StatusConflict, submitResponse{ErrorKind: kindDuplicate, Detail: err.Error()}
	case errors.As(err, &capacityErr):
		return http.StatusConflict, submitResponse{ErrorKind: kindCapacity, Detail: capacityErr.Error(), Slots: capacityErr.Slots}
	case errors.Is(err, reservation.ErrInvalidContact):
		return http.StatusUnprocessableEntity, submitResponse{ErrorKind: kindContact, Detail: reservation.ErrInvalidContact.Error()}
	case errors.Is(err, reservation.ErrLockTimeout):
		return http.StatusServiceUnavailable, submitResponse{ErrorKind: kindLockTimeout, Detail: err.Error()}
	default:
		log.Printf("submit reservation: %v", err)
		return http.StatusInternalServerError, submitResponse{ErrorKind: kindInternal, Detail: internalMsg}
	}
}
