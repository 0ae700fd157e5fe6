package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/model"
	"github.com/quizforge/quizforge/internal/store"
)

type courseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Capacity    int    `json:"capacity"`
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	id, err := h.store.CreateCourse(model.Course{
		Name:        req.Name,
		Description: req.Description,
		TeacherID:   user.ID,
		Capacity:    req.Capacity,
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	course, err := h.store.GetCourse(id)
	if err != nil || course == nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	respondJSON(w, http.StatusCreated, course)
}

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.store.ListCourses()
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	respondJSON(w, http.StatusOK, courses)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	courseID, ok := h.courseIDFromPath(w, r)
	if !ok {
		return
	}

	err := h.store.EnrollStudent(courseID, user.ID)
	switch {
	case errors.Is(err, store.ErrAlreadyEnrolled):
		respondError(w, r, http.StatusConflict, "ErrAlreadyEnrolled")
	case errors.Is(err, store.ErrCourseFull):
		respondError(w, r, http.StatusConflict, "ErrCourseFull")
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleDrop(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	courseID, ok := h.courseIDFromPath(w, r)
	if !ok {
		return
	}

	err := h.store.DropStudent(courseID, user.ID)
	switch {
	case errors.Is(err, store.ErrNotEnrolled):
		respondError(w, r, http.StatusConflict, "ErrNotEnrolled")
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleCourseStudents(w http.ResponseWriter, r *http.Request) {
	courseID, ok := h.courseIDFromPath(w, r)
	if !ok {
		return
	}

	students, err := h.store.ListEnrolledStudents(courseID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	type studentView struct {
		ID          int64  `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	}
	views := make([]studentView, 0, len(students))
	for _, s := range students {
		views = append(views, studentView{ID: s.ID, Username: s.Username, DisplayName: s.DisplayName})
	}
	respondJSON(w, http.StatusOK, views)
}

type scoreRequest struct {
	Score float64 `json:"score"`
}

// handleSetScore records a teacher-assigned course score for a student.
func (h *Handler) handleSetScore(w http.ResponseWriter, r *http.Request) {
	courseID, ok := h.courseIDFromPath(w, r)
	if !ok {
		return
	}
	studentID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	err = h.store.SetCourseScore(courseID, studentID, req.Score)
	switch {
	case errors.Is(err, store.ErrNotEnrolled):
		respondError(w, r, http.StatusConflict, "ErrNotEnrolled")
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleMyScores(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	scores, err := h.store.ListScoresForStudent(user.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if scores == nil {
		scores = []model.CourseScore{}
	}
	respondJSON(w, http.StatusOK, scores)
}

func (h *Handler) courseIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return 0, false
	}
	course, err := h.store.GetCourse(id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return 0, false
	}
	if course == nil {
		respondError(w, r, http.StatusNotFound, "ErrCourseNotFound")
		return 0, false
	}
	return id, true
}
