package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/todmy/stoneweight/pkg/models"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse represents the login response
type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// UserRequest is the body of user create and update calls. Fields left
// out of an update are kept.
type UserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handlers holds the HTTP handlers for auth and user endpoints
type Handlers struct {
	service Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token, User: user.Public()})
}

// Me handles GET /api/auth/me - returns current user info
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":       claims.UserID,
		"username": claims.Username,
	})
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]models.User, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	respondJSON(w, http.StatusOK, out)
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == nil || req.Password == nil {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.service.CreateUser(r.Context(), *req.Username, *req.Password)
	if err != nil {
		respondUserError(w, err, "failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, user.Public())
}

// UpdateUser handles PUT /api/users/{id}
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), UserUpdate{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondUserError(w, err, "failed to update user")
		return
	}

	respondJSON(w, http.StatusOK, user.Public())
}

// DeleteUser handles DELETE /api/users/{id}
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		respondUserError(w, err, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondUserError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUserNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrSelfDelete):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
