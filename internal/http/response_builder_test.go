package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
	"salvadanaio/internal/services"
)

func TestJSONResponseBuilder_Body(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusOK).
		Header("X-Custom", "value").
		Body(map[string]int{"count": 2}).
		Write(w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "value", w.Header().Get("X-Custom"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestJSONResponseBuilder_Mutation(t *testing.T) {
	w := httptest.NewRecorder()
	b := core.Budget{TotalBalance: decimal.NewFromInt(10)}

	NewJSONResponse().
		Body("ignored").
		Outcome(core.Info("Income added", "done")).
		Budget(b).
		Write(w)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "outcome")
	assert.Contains(t, resp, "budget")
	assert.NotContains(t, resp, "remaining")
	assert.JSONEq(t, `{"title":"Income added","message":"done","severity":"info"}`, string(resp["outcome"]))
}

func TestJSONResponseBuilder_EmptyBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
		title   string
	}{
		{"BadRequest", BadRequestError("broken"), http.StatusBadRequest, "Invalid request"},
		{"Unprocessable", UnprocessableEntityError(core.OutcomeFromError(core.ErrInvalidAmount)), http.StatusUnprocessableEntity, "Invalid amount"},
		{"NotFound", NotFoundError(core.OutcomeFromError(core.ErrCategoryNotFound)), http.StatusNotFound, "Category not found"},
		{"InternalServer", InternalServerError("boom"), http.StatusInternalServerError, "Something went wrong"},
		{"ServiceUnavailable", ServiceUnavailableError("later"), http.StatusServiceUnavailable, "Service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			assert.Equal(t, tt.status, w.Code)
			var resp MutationResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.title, resp.Outcome.Title)
			assert.Equal(t, core.SeverityError, resp.Outcome.Severity)
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrNotRunning, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{fmt.Errorf("category %q: %w", "9", core.ErrCategoryNotFound), http.StatusNotFound},
		{core.ErrScheduledPaymentNotFound, http.StatusNotFound},
		{&core.InsufficientFundsError{Remaining: decimal.NewFromInt(5)}, http.StatusConflict},
		{core.ErrStrandedFunds, http.StatusConflict},
		{fmt.Errorf("scheduled payment %q completed: %w", "sp-1", core.ErrScheduledPaymentEnded), http.StatusConflict},
		{fmt.Errorf("category %q: %w", "2", core.ErrInvalidPriority), http.StatusUnprocessableEntity},
		{core.ErrDuplicateName, http.StatusUnprocessableEntity},
		{core.ErrPercentageOverflow, http.StatusUnprocessableEntity},
		{core.ErrInvalidDate, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusForError(tt.err))
		})
	}
}

func TestFromError_CarriesRemaining(t *testing.T) {
	w := httptest.NewRecorder()
	FromError(&core.InsufficientFundsError{Remaining: decimal.RequireFromString("12.5")}).Write(w)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Remaining)
	assert.True(t, resp.Remaining.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "Insufficient funds", resp.Outcome.Title)
}
