package http

import (
	"net/http"

	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/log"
)

type categoryRequest struct {
	Name       string  `json:"name" validate:"required,max=50"`
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
	Color      string  `json:"color" validate:"omitempty,hexcolor"`
	Icon       string  `json:"icon" validate:"max=50"`
	MaxAmount  *Amount `json:"maxAmount"`
	Priority   *int    `json:"priority" validate:"omitempty,gte=1"`
}

func (c categoryRequest) input() (engine.CategoryInput, error) {
	maxAmount, err := capAmount(c.MaxAmount)
	if err != nil {
		return engine.CategoryInput{}, err
	}
	return engine.CategoryInput{
		Name:       sanitizeInput(c.Name),
		Percentage: c.Percentage,
		Color:      sanitizeInput(c.Color),
		Icon:       sanitizeInput(c.Icon),
		MaxAmount:  maxAmount,
		Priority:   c.Priority,
	}, nil
}

type priorityRequest struct {
	ID        string  `json:"id" validate:"required"`
	Priority  int     `json:"priority" validate:"gte=1"`
	MaxAmount *Amount `json:"maxAmount"`
}

// prioritiesRequest wraps the array body so the validator can dive into it.
type prioritiesRequest struct {
	Updates []priorityRequest `json:"updates" validate:"required,min=1,dive"`
}

type moveRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
		return
	}
	res, err := s.svc.AddCategory(r.Context(), in)
	s.respond(w, r, log.OpAddCategory, res, err)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
		return
	}
	res, err := s.svc.UpdateCategory(r.Context(), r.PathValue("id"), in)
	s.respond(w, r, log.OpUpdateCategory, res, err)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteCategory(r.Context(), r.PathValue("id"))
	s.respond(w, r, log.OpDeleteCategory, res, err)
}

func (s *Server) handleUpdatePriorities(w http.ResponseWriter, r *http.Request) {
	var req prioritiesRequest
	if err := decodeJSON(w, r, &req.Updates); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		UnprocessableEntityError(validationOutcome(err)).Write(w)
		return
	}

	updates := make([]engine.PriorityUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		maxAmount, err := capAmount(u.MaxAmount)
		if err != nil {
			UnprocessableEntityError(core.OutcomeFromError(err)).Write(w)
			return
		}
		updates = append(updates, engine.PriorityUpdate{
			ID:        sanitizeInput(u.ID),
			Priority:  u.Priority,
			MaxAmount: maxAmount,
		})
	}
	res, err := s.svc.UpdatePriorities(r.Context(), updates)
	s.respond(w, r, log.OpPriorities, res, err)
}

func (s *Server) handleMoveCategory(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	res, err := s.svc.MoveCategory(r.Context(), r.PathValue("id"), engine.Direction(req.Direction))
	s.respond(w, r, log.OpMoveCategory, res, err)
}
