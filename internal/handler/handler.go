// Package handler wires the JSON API: auth, quiz synthesis, answer grading,
// courses, and admin.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/analysis"
	"github.com/quizforge/quizforge/internal/i18n"
	"github.com/quizforge/quizforge/internal/llm"
	"github.com/quizforge/quizforge/internal/model"
	"github.com/quizforge/quizforge/internal/retry"
	"github.com/quizforge/quizforge/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	gen      llm.Generator
	composer *analysis.Composer
	policy   retry.Policy
	config   model.ServerConfig
	// schemaExample anchors generation prompts to the expected JSON shape.
	schemaExample string
}

// New creates a new Handler.
func New(s *store.Store, gen llm.Generator, composer *analysis.Composer, policy retry.Policy, schemaExample string, cfg model.ServerConfig) *Handler {
	return &Handler{
		store:         s,
		gen:           gen,
		composer:      composer,
		policy:        policy,
		config:        cfg,
		schemaExample: schemaExample,
	}
}

// Routes registers all API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/quizzes/{publicID}", h.handleGetQuiz)
			r.Post("/quizzes/{publicID}/answers", h.handleSubmitAnswers)
			r.Get("/courses", h.handleListCourses)
			r.Get("/me/analyses", h.handleMyAnalyses)
			r.Get("/me/scores", h.handleMyScores)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleStudent))
				r.Post("/courses/{courseID}/enroll", h.handleEnroll)
				r.Delete("/courses/{courseID}/enroll", h.handleDrop)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
				r.Post("/quizzes", h.handleCreateQuiz)
				r.Get("/quizzes", h.handleListQuizzes)
				r.Get("/quizzes/{publicID}/analyses", h.handleQuizAnalyses)
				r.Post("/courses", h.handleCreateCourse)
				r.Get("/courses/{courseID}/students", h.handleCourseStudents)
				r.Put("/courses/{courseID}/scores/{userID}", h.handleSetScore)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin))
				r.Get("/admin/users", h.handleListUsers)
				r.Post("/admin/users/{userID}/toggle", h.handleToggleUser)
			})
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, errorResponse{Error: i18n.T(r.Context(), msgID)})
}

func respondErrorData(w http.ResponseWriter, r *http.Request, status int, msgID string, data map[string]any) {
	respondJSON(w, status, errorResponse{Error: i18n.Td(r.Context(), msgID, data)})
}

// requireAuth is middleware that resolves the session cookie to a user.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			respondError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}
		if authSess == nil {
			respondError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active {
			respondError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				respondError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, r, http.StatusForbidden, "ErrForbidden")
		})
	}
}
