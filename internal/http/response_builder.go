// Package http exposes the budget service as a JSON API.
//
// This file implements the Builder Pattern for JSON responses. Mutating
// endpoints answer with {outcome, budget?, remaining?}; read endpoints
// answer with their resource.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
	"salvadanaio/internal/services"
)

// MutationResponse is the body of every mutating endpoint.
type MutationResponse struct {
	Outcome   core.Outcome     `json:"outcome"`
	Budget    *core.Budget     `json:"budget,omitempty"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	mutation   *MutationResponse
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets a resource body. It is ignored once an outcome is set.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) ensureMutation() *MutationResponse {
	if b.mutation == nil {
		b.mutation = &MutationResponse{}
	}
	return b.mutation
}

// Outcome sets the outcome of a mutation.
func (b *JSONResponseBuilder) Outcome(o core.Outcome) *JSONResponseBuilder {
	b.ensureMutation().Outcome = o
	return b
}

// Budget attaches the budget after the mutation.
func (b *JSONResponseBuilder) Budget(budget core.Budget) *JSONResponseBuilder {
	b.ensureMutation().Budget = &budget
	return b
}

// Remaining attaches the unmet part of a payment or withdrawal.
func (b *JSONResponseBuilder) Remaining(d decimal.Decimal) *JSONResponseBuilder {
	b.ensureMutation().Remaining = &d
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)

	var payload any = b.body
	if b.mutation != nil {
		payload = b.mutation
	}
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorResponse creates a failed mutation response.
func ErrorResponse(statusCode int, o core.Outcome) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Outcome(o)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, core.Failure("Invalid request", "%s", message))
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(o core.Outcome) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, o)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(o core.Outcome) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, o)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, core.Failure("Something went wrong", "%s", message))
}

// ServiceUnavailableError creates a 503 Service Unavailable error response.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, core.Failure("Service unavailable", "%s", message))
}

// statusForError maps service and engine errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotRunning),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrCategoryNotFound),
		errors.Is(err, core.ErrScheduledPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrStrandedFunds),
		errors.Is(err, core.ErrScheduledPaymentEnded):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPercentage),
		errors.Is(err, core.ErrPercentageOverflow),
		errors.Is(err, core.ErrInvalidPriority),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrDuplicateName),
		errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the response for a rejected operation. Insufficient
// funds carry the remainder so the client can retry with fallbacks.
func FromError(err error) *JSONResponseBuilder {
	status := statusForError(err)
	if status == http.StatusServiceUnavailable {
		return ServiceUnavailableError("The budget service is not accepting requests")
	}
	b := ErrorResponse(status, core.OutcomeFromError(err))
	if remaining, ok := core.RemainingFromError(err); ok {
		b.Remaining(remaining)
	}
	return b
}

// FromResult builds the response for a committed operation.
func FromResult(res services.Result) *JSONResponseBuilder {
	return NewJSONResponse().Outcome(res.Outcome).Budget(res.Budget)
}
