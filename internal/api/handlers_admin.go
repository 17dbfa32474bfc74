package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"authd/internal/models"
)

// AdminLogin signs in a deployment operator with the master password.
// POST /api/v1/admin/login
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, err.Error())
		return
	}

	response, err := h.service.AdminLogin(r.Context(), &req)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.recordLogin(r, "admin")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// AdminStats reports account population counts.
// GET /api/v1/admin/stats
func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.storage.CountUsers(r.Context())
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, &models.StatsResponse{
		TotalUsers:  counts.Total,
		ActiveUsers: counts.Active,
		AdminUsers:  counts.Admins,
	})
}

// AdminListUsers returns every account.
// GET /api/v1/admin/users
func (h *Handlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.storage.ListUsers(r.Context())
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	response := &models.ListUsersResponse{
		Users:      make([]models.UserResponse, 0, len(users)),
		TotalCount: len(users),
	}
	for _, user := range users {
		response.Users = append(response.Users, models.NewUserResponse(user))
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// AdminDeactivateUser suspends an account. Existing tokens stop resolving on
// the next request; there is no revocation list to maintain.
// POST /api/v1/admin/users/{user_id}/deactivate
func (h *Handlers) AdminDeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setUserActive(w, r, false)
}

// AdminActivateUser reinstates a suspended account.
// POST /api/v1/admin/users/{user_id}/activate
func (h *Handlers) AdminActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setUserActive(w, r, true)
}

// AdminDeleteUser removes an account.
// DELETE /api/v1/admin/users/{user_id}
func (h *Handlers) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	if caller := GetIdentity(r); caller != nil && caller.ID == id {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, "Cannot delete the calling account")
		return
	}

	if err := h.storage.DeleteUser(r.Context(), id); err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setUserActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	if caller := GetIdentity(r); caller != nil && caller.ID == id && !active {
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, models.ErrorCodeValidation, "Cannot deactivate the calling account")
		return
	}

	user, err := h.storage.GetUserByID(r.Context(), id)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	user.IsActive = active
	if err := h.storage.UpdateUser(r.Context(), user); err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, models.NewUserResponse(user))
}

func (h *Handlers) userIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["user_id"], 10, 64)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid user ID")
		return 0, false
	}
	return id, true
}
