package api

import (
	"net/http"

	"authd/internal/models"
)

// adminSecretHeader carries the bootstrap secret on the make-me-admin call.
const adminSecretHeader = "X-Admin-Secret"

// MakeMeAdmin promotes the calling account to admin when the request carries
// the deployment's bootstrap secret. Intended for first-run setup, before any
// admin account exists; the caller must already be signed in.
// POST /api/v1/setup/make-me-admin
func (h *Handlers) MakeMeAdmin(w http.ResponseWriter, r *http.Request) {
	user := GetIdentity(r)
	if user == nil {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid credentials")
		return
	}

	if err := h.service.Bootstrap(r.Context(), user, r.Header.Get(adminSecretHeader)); err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, models.NewUserResponse(user))
}
