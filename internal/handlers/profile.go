package handlers

import (
	"context"
	"net/http"

	"github.com/AnshRaj112/clipstream-backend/internal/httputil"
	"github.com/AnshRaj112/clipstream-backend/internal/middleware"
	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
)

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type UpdateDetailsRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (h *UserHandler) currentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.ErrUnauthorized)
		return "", false
	}
	return u.ID, true
}

// ChangePassword handles POST /user/changePassword. The session ends, so
// both cookies are cleared.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.currentID(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w)
	httputil.WriteSuccess(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.currentID(w, r)
	if !ok {
		return
	}
	u, err := h.accounts.CurrentUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, u, "User fetched successfully")
}

func (h *UserHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := h.currentID(w, r)
	if !ok {
		return
	}
	var req UpdateDetailsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.accounts.UpdateDetails(r.Context(), id, req.FullName, req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, u, "Account details updated successfully")
}

// replaceImage stages the single file in field and hands it to update.
func (h *UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field, message string,
	update func(ctx context.Context, id, path string) (*models.User, error)) {
	id, ok := h.currentID(w, r)
	if !ok {
		return
	}
	st := &staged{}
	defer st.cleanup(r)

	if err := h.uploads.parse(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	path, err := h.uploads.save(r, st, field)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := update(r.Context(), id, path)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, u, message)
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", "Avatar image updated successfully", h.accounts.UpdateAvatar)
}

func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", "Cover image updated successfully", h.accounts.UpdateCoverImage)
}

func (h *UserHandler) RemoveCoverImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.currentID(w, r)
	if !ok {
		return
	}
	u, err := h.accounts.RemoveCoverImage(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, u, "Cover image removed successfully")
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "OK")
}
