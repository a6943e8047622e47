package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"csp-portal/internal/repo"
	"csp-portal/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// fail maps an error from decoding or the store onto a response. action
// names the failed operation in 500 messages, e.g. "create CSP".
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request", Detail: verr.Detail})
	case errors.Is(err, repo.ErrInvalidReference):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Referenced record does not exist", Error: err.Error()})
	case errors.Is(err, repo.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Message: "Record already exists", Error: err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("action", action),
			zap.String("route", routePattern(r)),
			zap.Error(err),
		)
		s.metrics.IncError("http")
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Failed to " + action, Error: err.Error()})
	}
}

// pathID reads a positive integer path parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func pathText(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// queryLimit reads ?limit=, falling back to def when it is absent. A limit
// of 0 yields an empty list.
func queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid limit")
		return 0, false
	}
	return limit, true
}

func queryString(r *http.Request, name string) *string {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}

// writeFound answers 200 with v, or 404 with notFound when v is absent.
func writeFound[T any](w http.ResponseWriter, v *T, notFound string) {
	if v == nil {
		writeMessage(w, http.StatusNotFound, notFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
