package httpserver

import (
	"net/http"
	"time"

	"csp-portal/internal/repo"
	"csp-portal/internal/validation"
)

func (s *Server) handleListSystemStatus(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSystemStatus(r.Context())
	if err != nil {
		s.fail(w, r, "get system status", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateSystemStatus(w http.ResponseWriter, r *http.Request) {
	service := pathText(r, "service")
	var patch repo.SystemStatusPatch
	if err := validation.Decode(r.Body, &patch); err != nil {
		s.fail(w, r, "update system status", err)
		return
	}
	item, err := s.store.UpdateSystemStatus(r.Context(), service, patch)
	if err != nil {
		s.fail(w, r, "update system status", err)
		return
	}
	writeFound(w, item, "Service not found")
}

func (s *Server) handleGetWarMode(w http.ResponseWriter, r *http.Request) {
	status, err := s.store.GetWarMode(r.Context())
	if err != nil {
		s.fail(w, r, "get war mode status", err)
		return
	}
	writeFound(w, status, "War mode status not found")
}

func (s *Server) handleUpdateWarMode(w http.ResponseWriter, r *http.Request) {
	var patch repo.WarModePatch
	if err := validation.Decode(r.Body, &patch); err != nil {
		s.fail(w, r, "update war mode status", err)
		return
	}
	s.applyWarMode(w, r, patch)
}

type activateRequest struct {
	Level         int      `json:"level" validate:"required,gte=1,lte=3"`
	AffectedAreas []string `json:"affectedAreas"`
	Instructions  []string `json:"instructions"`
}

// handleActivateWarMode turns war mode on for the caller.
func (s *Server) handleActivateWarMode(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		s.fail(w, r, "activate war mode", err)
		return
	}
	active := true
	s.applyWarMode(w, r, repo.WarModePatch{
		IsActive:      &active,
		Level:         &req.Level,
		ActivatedBy:   repo.Some(claimsFromContext(r.Context()).UserID),
		ActivatedAt:   repo.Some(s.now()),
		DeactivatedAt: repo.Null[time.Time](),
		AffectedAreas: repo.Some(nonNil(req.AffectedAreas)),
		Instructions:  repo.Some(nonNil(req.Instructions)),
	})
}

func (s *Server) handleDeactivateWarMode(w http.ResponseWriter, r *http.Request) {
	active := false
	s.applyWarMode(w, r, repo.WarModePatch{
		IsActive:      &active,
		DeactivatedAt: repo.Some(s.now()),
	})
}

func (s *Server) applyWarMode(w http.ResponseWriter, r *http.Request, patch repo.WarModePatch) {
	status, err := s.store.UpdateWarMode(r.Context(), patch)
	if err != nil {
		s.fail(w, r, "update war mode status", err)
		return
	}
	s.metrics.ObserveWarMode(status.IsActive, status.Level)
	writeJSON(w, http.StatusOK, status)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
