package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/smartfarm-iot/apiserver/internal/identity"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
)

const minPasswordLength = 6

// AuthHandler provides registration and login endpoints.
type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// AuthRouter registers auth routes on the given router. Registration
// is admin-only; login is public.
func AuthRouter(r chi.Router, users *services.UserService, authn *Authenticator) {
	handler := NewAuthHandler(users)

	r.Post("/login", handler.Login)
	r.With(authn.RequireAuth, RequireRole(types.RoleAdmin)).Post("/register", handler.Register)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Username string `json:"username"`
	NoTelp   string `json:"noTelp"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account. Only admins reach this handler.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	uid, err := h.users.Register(r.Context(), actorUID(r.Context()), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Username: req.Username,
		Phone:    strings.TrimSpace(req.NoTelp),
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusBadRequest, "username already in use")
		case errors.Is(err, identity.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "email already in use")
		default:
			writeError(w, http.StatusInternalServerError, "failed to register account")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]string{"uid": uid}, "registration successful")
}

// Login exchanges credentials for a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, services.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, "account disabled")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "account record not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to sign in")
		}
		return
	}

	writeSuccess(w, http.StatusOK, result, "login successful")
}
