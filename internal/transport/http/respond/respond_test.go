package respond

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/ordersvc"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("wrapped: %w", kitchenstatus.ErrInvalidStatus), want: http.StatusBadRequest},
		{err: ordersvc.ErrUnknownPreset, want: http.StatusBadRequest},
		{err: fmt.Errorf("failed to prepare: %w", order.ErrNotFound), want: http.StatusNotFound},
		{err: timing.ErrNotFound, want: http.StatusNotFound},
		{err: timing.ErrNotInWarning, want: http.StatusConflict},
		{err: errors.New("connection refused"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password leaked"), "boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "leaked")
}
