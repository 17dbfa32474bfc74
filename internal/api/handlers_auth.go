package api

import (
	"net/http"

	"authd/internal/models"
)

// Register handles account creation.
// POST /api/v1/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	response, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.recordLogin(r, "register")
	h.writeJSONResponse(w, http.StatusCreated, response)
}

// Login handles password sign-in.
// POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	response, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.recordLogin(r, "password")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// Me returns the calling account.
// GET /api/v1/users/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := GetIdentity(r)
	if user == nil {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid credentials")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewUserResponse(user))
}

// ChangePassword replaces the calling account's password credential.
// POST /api/v1/auth/password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetIdentity(r)
	if user == nil {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid credentials")
		return
	}

	var req models.ChangePasswordRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), user, &req); err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
