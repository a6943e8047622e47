package httpserver

import (
	"net/http"

	"csp-portal/internal/auth"
	"csp-portal/internal/repo"
	"csp-portal/internal/validation"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *repo.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		s.fail(w, r, "log in", err)
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		s.fail(w, r, "log in", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !user.Active() {
		writeMessage(w, http.StatusForbidden, "Account is not active")
		return
	}

	updated, err := s.store.UpdateUser(r.Context(), user.ID, repo.UserPatch{LastLogin: repo.Some(s.now())})
	if err != nil {
		s.fail(w, r, "log in", err)
		return
	}
	if updated != nil {
		user = updated
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.TokenTTL, auth.Claims{
		UserID: user.ID,
		Role:   auth.Role(user.Role),
	})
	if err != nil {
		s.fail(w, r, "log in", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.fail(w, r, "get user", err)
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in repo.NewUser
	if err := validation.Decode(r.Body, &in); err != nil {
		s.fail(w, r, "create user", err)
		return
	}

	existing, err := s.store.GetUserByUsername(r.Context(), in.Username)
	if err != nil {
		s.fail(w, r, "create user", err)
		return
	}
	if existing != nil {
		writeMessage(w, http.StatusConflict, "Username already exists")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.fail(w, r, "create user", err)
		return
	}
	in.Password = hash

	user, err := s.store.CreateUser(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get user", err)
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch repo.UserPatch
	if err := validation.Decode(r.Body, &patch); err != nil {
		s.fail(w, r, "update user", err)
		return
	}
	user, err := s.store.UpdateUser(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, "update user", err)
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
