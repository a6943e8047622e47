package httpserver

import (
	"net/http"
	"strconv"

	"csp-portal/internal/repo"
	"csp-portal/internal/validation"
)

func (s *Server) handleCreateCSP(w http.ResponseWriter, r *http.Request) {
	var in repo.NewCSP
	if err := validation.Decode(r.Body, &in); err != nil {
		s.fail(w, r, "create CSP", err)
		return
	}
	csp, err := s.store.CreateCSP(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create CSP", err)
		return
	}
	writeJSON(w, http.StatusCreated, csp)
}

func (s *Server) handleListCSPs(w http.ResponseWriter, r *http.Request) {
	filter := repo.CSPFilter{
		Status:   queryString(r, "status"),
		District: queryString(r, "district"),
		State:    queryString(r, "state"),
	}
	if raw := r.URL.Query().Get("isRedZone"); raw != "" {
		red, err := strconv.ParseBool(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "isRedZone must be true or false")
			return
		}
		filter.IsRedZone = &red
	}

	list, err := s.store.ListCSPs(r.Context(), filter)
	if err != nil {
		s.fail(w, r, "list CSPs", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetCSP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	csp, err := s.store.GetCSP(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get CSP", err)
		return
	}
	if csp == nil {
		writeMessage(w, http.StatusNotFound, "CSP not found")
		return
	}
	writeJSON(w, http.StatusOK, csp)
}

func (s *Server) handleGetCSPByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	csp, err := s.store.GetCSPByUserID(r.Context(), userID)
	if err != nil {
		s.fail(w, r, "get CSP", err)
		return
	}
	if csp == nil {
		writeMessage(w, http.StatusNotFound, "CSP not found")
		return
	}
	writeJSON(w, http.StatusOK, csp)
}

func (s *Server) handleUpdateCSP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch repo.CSPPatch
	if err := validation.Decode(r.Body, &patch); err != nil {
		s.fail(w, r, "update CSP", err)
		return
	}
	csp, err := s.store.UpdateCSP(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, "update CSP", err)
		return
	}
	if csp == nil {
		writeMessage(w, http.StatusNotFound, "CSP not found")
		return
	}
	writeJSON(w, http.StatusOK, csp)
}
