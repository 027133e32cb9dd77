package http

import (
	"net/http"

	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/log"
	"salvadanaio/internal/services"
)

type scheduleRequest struct {
	Amount              Amount   `json:"amount" validate:"amount"`
	Description         string   `json:"description" validate:"max=200"`
	Date                string   `json:"date" validate:"required"`
	Recurring           bool     `json:"recurring"`
	Frequency           string   `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	PreferredCategoryID string   `json:"preferredCategoryId"`
	FallbackCategoryIDs []string `json:"fallbackCategoryIds" validate:"omitempty,dive,required"`
}

type toggleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// firedView is one due payment of a tick as rendered to API clients.
type firedView struct {
	Payment       core.ScheduledPayment `json:"payment"`
	TransactionID string                `json:"transactionId,omitempty"`
	Outcome       core.Outcome          `json:"outcome"`
}

type tickResponse struct {
	Outcome  core.Outcome               `json:"outcome"`
	Budget   *core.Budget               `json:"budget,omitempty"`
	Warnings []services.LowFundsWarning `json:"warnings"`
	Fired    []firedView                `json:"fired"`
}

func (s *Server) handleSchedulePayment(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	amount, err := req.Amount.Decimal()
	if err != nil {
		UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
		return
	}
	res, err := s.svc.SchedulePayment(r.Context(), engine.ScheduleRequest{
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
		Recurring:   req.Recurring,
		Frequency:   core.Frequency(req.Frequency),
		PreferredID: sanitizeInput(req.PreferredCategoryID),
		FallbackIDs: sanitizeAll(req.FallbackCategoryIDs),
	})
	s.respond(w, r, log.OpSchedule, res, err)
}

func (s *Server) handleToggleScheduled(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	res, err := s.svc.ToggleScheduled(r.Context(), r.PathValue("id"), *req.Active)
	s.respond(w, r, log.OpToggleScheduled, res, err)
}

func (s *Server) handleCancelScheduled(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.CancelScheduled(r.Context(), r.PathValue("id"))
	s.respond(w, r, log.OpCancelScheduled, res, err)
}

// handleTick runs one scheduler evaluation on demand.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Tick(r.Context())
	if err != nil {
		FromError(err).Write(w)
		return
	}

	resp := tickResponse{
		Outcome: core.Info("Scheduler tick", "%d payments processed, %d warnings",
			len(report.Fired), len(report.Warnings)),
		Warnings: report.Warnings,
		Fired:    make([]firedView, 0, len(report.Fired)),
	}
	if resp.Warnings == nil {
		resp.Warnings = []services.LowFundsWarning{}
	}
	for _, f := range report.Fired {
		view := firedView{Payment: f.Payment, Outcome: services.FiredOutcome(f)}
		if f.Transaction != nil {
			view.TransactionID = f.Transaction.ID
		}
		resp.Fired = append(resp.Fired, view)
	}
	if report.Changed() {
		resp.Budget = &report.Budget
	}
	NewJSONResponse().Body(resp).Write(w)
}
