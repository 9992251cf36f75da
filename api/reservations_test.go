package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mkrylov/tablebook/internal/domain"
	"github.com/mkrylov/tablebook/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockReservationUseCase is a mock implementation of reservation.ReservationUseCase
type MockReservationUseCase struct {
	mock.Mock
}

func (m *MockReservationUseCase) Availability(ctx context.Context) (*reservation.Page, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Page), args.Error(1)
}

func (m *MockReservationUseCase) Submit(ctx context.Context, input reservation.SubmitInput) (*domain.Snapshot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockReservationUseCase) Rotate(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func postReservation(t *testing.T, handler *ReservationHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	payload, err := json.Marshal(body)
	assert.NoError(t, err)
	c.Request = httptest.NewRequest("POST", "/api/v1/reservations", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.create(c)
	return w
}

func requestBody() map[string]interface{} {
	return map[string]interface{}{
		"date":          "2026-03-20",
		"startTime":     "18:00",
		"numberPersons": 4,
		"name":          "New Guest",
		"email":         "new@example.com",
		"phone":         "0123456789",
		"comment":       "window seat please",
	}
}

func TestReservationHandler_create(t *testing.T) {
	mockService := &MockReservationUseCase{}
	handler := NewReservationHandler(mockService)

	snapshot := &domain.Snapshot{Days: []domain.Day{{Date: "2026-03-20"}}}
	mockService.On("Submit", mock.Anything, reservation.SubmitInput{
		Date:      "2026-03-20",
		StartTime: "18:00",
		PartySize: 4,
		Name:      "New Guest",
		Email:     "new@example.com",
		Phone:     "0123456789",
		Comment:   "window seat please",
	}).Return(snapshot, nil)

	w := postReservation(t, handler, requestBody())

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp submitResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.NotNil(t, resp.Table)

	mockService.AssertExpectations(t)
}

func TestReservationHandler_create_bindingRejected(t *testing.T) {
	mockService := &MockReservationUseCase{}
	handler := NewReservationHandler(mockService)

	body := requestBody()
	body["email"] = "not-an-email"
	w := postReservation(t, handler, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestReservationHandler_create_errorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"duplicate", reservation.ErrDuplicateSubmission, http.StatusConflict, "DuplicateSubmission"},
		{
			"capacity",
			&reservation.CapacityExceededError{Date: "2026-03-20", Slots: []reservation.SlotShortfall{{Start: "18:00", Remaining: 2}}},
			http.StatusConflict,
			"CapacityExceeded",
		},
		{"invalid contact", reservation.ErrInvalidContact, http.StatusUnprocessableEntity, "InvalidContact"},
		{"lock timeout", reservation.ErrLockTimeout, http.StatusServiceUnavailable, "LockTimeout"},
		{"validation", &reservation.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}, http.StatusBadRequest, "ValidationError"},
		{"store failure", &reservation.StoreWriteError{Err: errors.New("connection reset")}, http.StatusInternalServerError, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockReservationUseCase{}
			handler := NewReservationHandler(mockService)
			mockService.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := postReservation(t, handler, requestBody())

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp submitResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Accepted)
			assert.Equal(t, tt.wantKind, resp.ErrorKind)
		})
	}
}

func TestReservationHandler_create_internalDetailIsGeneric(t *testing.T) {
	mockService := &MockReservationUseCase{}
	handler := NewReservationHandler(mockService)
	mockService.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("pq: relation does not exist"))

	w := postReservation(t, handler, requestBody())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp submitResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, internalMsg, resp.Detail)
	assert.NotContains(t, resp.Detail, "pq:")
}
