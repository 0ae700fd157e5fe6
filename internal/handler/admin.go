package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/model"
)

type userView struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"displayName"`
	Role        model.UserRole `json:"role"`
	Active      bool           `json:"active"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			Active:      u.Active,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	target, err := h.store.GetUserByID(id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if target == nil {
		respondError(w, r, http.StatusNotFound, "ErrUserNotFound")
		return
	}

	// An admin cannot lock themselves out.
	if actor := model.UserFromContext(r.Context()); actor != nil && actor.ID == id {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	if err := h.store.ToggleUserActive(id); err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
