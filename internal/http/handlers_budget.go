package http

import (
	"net/http"

	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/log"
	"salvadanaio/internal/services"
)

type incomeRequest struct {
	Amount      Amount `json:"amount" validate:"amount"`
	Description string `json:"description" validate:"max=200"`
}

type withdrawalRequest struct {
	CategoryID  string `json:"categoryId" validate:"required"`
	Amount      Amount `json:"amount" validate:"amount"`
	Description string `json:"description" validate:"max=200"`
}

type paymentRequest struct {
	Amount              Amount   `json:"amount" validate:"amount"`
	Description         string   `json:"description" validate:"max=200"`
	PreferredCategoryID string   `json:"preferredCategoryId"`
	FallbackCategoryIDs []string `json:"fallbackCategoryIds" validate:"omitempty,dive,required"`
}

// decodeAndValidate writes the error response itself and reports whether
// the handler may continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		BadRequestError(err.Error()).Write(w)
		return false
	}
	if err := s.validator.Validate(dst); err != nil {
		UnprocessableEntityError(validationOutcome(err)).Write(w)
		return false
	}
	return true
}

// respond writes the result of an intent.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op string, res services.Result, err error) {
	if err != nil {
		logger := log.FromContext(r.Context())
		if statusForError(err) >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "Operation failed",
				log.FieldOperation, op,
				log.FieldError, err)
		} else {
			logger.DebugContext(r.Context(), "Operation rejected",
				log.FieldOperation, op,
				log.FieldError, err)
		}
		FromError(err).Write(w)
		return
	}
	FromResult(res).Write(w)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Snapshot(r.Context())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summary(r.Context())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		UnprocessableEntityError(core.Failure("Invalid request", "%v", err)).Write(w)
		return
	}
	txs, err := s.svc.History(r.Context(), filter)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	amount, err := req.Amount.Decimal()
	if err != nil {
		UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
		return
	}
	res, err := s.svc.AddIncome(r.Context(), amount, sanitizeInput(req.Description))
	s.respond(w, r, log.OpIncome, res, err)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	amount, err := req.Amount.Decimal()
	if err != nil {
		UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
		return
	}
	res, err := s.svc.Withdraw(r.Context(), sanitizeInput(req.CategoryID), amount, sanitizeInput(req.Description))
	s.respond(w, r, log.OpWithdraw, res, err)
}

func (s *Server) handleMakePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	amount, err := req.Amount.Decimal()
	if err != nil {
		UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
		return
	}
	res, err := s.svc.MakePayment(r.Context(), engine.PaymentRequest{
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		PreferredID: sanitizeInput(req.PreferredCategoryID),
		FallbackIDs: sanitizeAll(req.FallbackCategoryIDs),
	})
	s.respond(w, r, log.OpPayment, res, err)
}
