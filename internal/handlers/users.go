package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smartfarm-iot/apiserver/internal/services"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
)

// UserHandler provides profile and account administration endpoints.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers profile and admin routes. Everything here is
// bearer-authenticated; admin routes are additionally role-gated.
func UserRouter(r chi.Router, users *services.UserService, authn *Authenticator) {
	handler := NewUserHandler(users)

	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAuth)
		r.Get("/profile", handler.GetProfile)
		r.Put("/profile", handler.UpdateProfile)
		r.Post("/profile/change-password", handler.ChangePassword)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(types.RoleAdmin))
			r.Get("/users", handler.ListUsers)
			r.Delete("/users/{uid}", handler.DeleteUser)
		})
	})
}

type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	NoTelp   *string `json:"noTelp"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account, err := h.users.GetProfile(r.Context(), actorUID(r.Context()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}
	writeSuccess(w, http.StatusOK, account, "profile retrieved")
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil && req.Username == nil && req.NoTelp == nil {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	fields, err := h.users.UpdateProfile(r.Context(), actorUID(r.Context()), services.ProfileUpdate{
		Name:     req.Name,
		Username: req.Username,
		Phone:    req.NoTelp,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusBadRequest, "username already in use")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	writeSuccess(w, http.StatusOK, fields, "profile updated")
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	if err := h.users.ChangePassword(r.Context(), actorUID(r.Context()), req.NewPassword); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	writeSuccess(w, http.StatusOK, nil, "password changed")
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.users.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	writeSuccess(w, http.StatusOK, accounts, "accounts retrieved")
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "uid is required")
		return
	}

	if err := h.users.SoftDelete(r.Context(), actorUID(r.Context()), uid); err != nil {
		switch {
		case errors.Is(err, services.ErrSelfDelete):
			writeError(w, http.StatusBadRequest, "cannot delete own account")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete account")
		}
		return
	}

	writeSuccess(w, http.StatusOK, nil, "account deleted")
}
