package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizforge/quizforge/internal/model"
)

const sessionCookieName = "session"

type credentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	existing, err := h.store.GetUserByUsername(creds.Username)
	if err != nil {
		slog.Error("failed to check username", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if existing != nil {
		respondError(w, r, http.StatusConflict, "ErrUserExists")
		return
	}

	role := model.UserRole(creds.Role)
	// Self-registration never grants admin.
	if role != model.UserRoleTeacher {
		role = model.UserRoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	id, err := h.store.CreateUser(model.User{
		Username:     creds.Username,
		DisplayName:  creds.DisplayName,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "username": creds.Username, "role": role})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	user, err := h.store.GetUserByUsername(creds.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		respondError(w, r, http.StatusUnauthorized, "ErrLoginFailed")
		return
	}
	if user == nil || !user.Active {
		respondError(w, r, http.StatusUnauthorized, "ErrLoginFailed")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		respondError(w, r, http.StatusUnauthorized, "ErrLoginFailed")
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"id":          user.ID,
		"username":    user.Username,
		"displayName": user.DisplayName,
		"role":        user.Role,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}
