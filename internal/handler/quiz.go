package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/extract"
	"github.com/quizforge/quizforge/internal/grader"
	"github.com/quizforge/quizforge/internal/llm/prompts"
	"github.com/quizforge/quizforge/internal/model"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/retry"
)

// handleCreateQuiz synthesizes a quiz from an uploaded document. The request
// is multipart form data with a "file" part plus count, difficulty, and
// question kind fields.
func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	maxMem := h.config.MaxUploadMB << 20
	if maxMem <= 0 {
		maxMem = 32 << 20
	}
	if err := r.ParseMultipartForm(maxMem); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrNoFile")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrNoFile")
		return
	}
	defer file.Close()

	count, err := strconv.Atoi(r.FormValue("count"))
	if err != nil || count < model.MinQuestions || count > model.MaxQuestions {
		respondErrorData(w, r, http.StatusBadRequest, "ErrQuestionCount", map[string]any{
			"Min": model.MinQuestions, "Max": model.MaxQuestions,
		})
		return
	}

	difficulty := model.Difficulty(r.FormValue("difficulty"))
	if !model.ValidDifficulty(difficulty) {
		respondError(w, r, http.StatusBadRequest, "ErrDifficulty")
		return
	}

	singleChoice := formBool(r, "singleChoice")
	fillBlank := formBool(r, "fillBlank")

	var courseID *int64
	if v := r.FormValue("courseId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
			return
		}
		course, err := h.store.GetCourse(id)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "ErrInternal")
			return
		}
		if course == nil {
			respondError(w, r, http.StatusNotFound, "ErrCourseNotFound")
			return
		}
		courseID = &id
	}

	text, err := extract.FromUpload(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			respondError(w, r, http.StatusBadRequest, "ErrFileType")
		case errors.Is(err, extract.ErrEmpty):
			respondError(w, r, http.StatusBadRequest, "ErrEmptyFile")
		default:
			slog.Error("text extraction failed", "file", header.Filename, "error", err)
			respondError(w, r, http.StatusBadRequest, "ErrEmptyFile")
		}
		return
	}

	prompt, err := prompts.BuildGenerationPrompt(prompts.GenerationInput{
		SourceText:        text,
		Count:             count,
		Difficulty:        string(difficulty),
		AllowSingleChoice: singleChoice,
		AllowFillBlank:    fillBlank,
		Notes:             r.FormValue("notes"),
		SchemaExample:     h.schemaExample,
		MaxSourceRunes:    h.config.MaxSourceRunes,
	})
	if err != nil {
		slog.Error("prompt construction failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	raw, err := retry.Do(ctx, h.policy, func(ctx context.Context) (string, error) {
		return h.gen.Generate(ctx, prompt)
	})
	if err != nil {
		slog.Error("quiz generation failed", "file", header.Filename, "error", err)
		respondErrorData(w, r, http.StatusBadGateway, "ErrGeneration", map[string]any{"Error": err.Error()})
		return
	}

	doc := quiz.Recover(raw)
	if doc.IsFallback() {
		slog.Warn("recovery fell back to placeholder quiz", "file", header.Filename)
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}

	created, err := h.store.CreateQuiz(model.Quiz{
		CourseID:      courseID,
		Title:         title,
		SourceFile:    header.Filename,
		Document:      doc,
		QuestionCount: doc.QuestionCount(),
		Difficulty:    difficulty,
		CreatedBy:     user.ID,
	})
	if err != nil {
		slog.Error("failed to store quiz", "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	slog.Info("quiz created", "public_id", created.PublicID, "questions", created.QuestionCount, "fallback", doc.IsFallback())
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	q, ok := h.quizFromPath(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	quizzes, err := h.store.ListQuizzesByCreator(user.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}
	respondJSON(w, http.StatusOK, quizzes)
}

type submission struct {
	Answers map[string]string `json:"answers"`
}

// handleSubmitAnswers grades a student's answers and returns the grading
// result with its remediation narrative. Grading is deterministic; only the
// narrative touches the model, and its failure never fails the request.
func (h *Handler) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	q, ok := h.quizFromPath(w, r)
	if !ok {
		return
	}

	var sub submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	report := grader.Grade(q.Document, sub.Answers)
	ctx, cancel := h.requestContext(r)
	defer cancel()
	narrative := h.composer.Compose(ctx, report)

	if _, err := h.store.CreateAnalysis(model.Analysis{
		QuizID:    q.ID,
		StudentID: user.ID,
		Report:    report,
		Narrative: narrative,
	}); err != nil {
		slog.Error("failed to store analysis", "quiz_id", q.ID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	respondJSON(w, http.StatusOK, model.GradingResult{
		TotalQuestions:     report.TotalQuestions,
		CorrectCount:       report.CorrectCount,
		IncorrectCount:     report.IncorrectCount,
		IncorrectQuestions: report.IncorrectQuestions,
		KnowledgeAnalysis:  narrative,
	})
}

func (h *Handler) handleQuizAnalyses(w http.ResponseWriter, r *http.Request) {
	q, ok := h.quizFromPath(w, r)
	if !ok {
		return
	}
	analyses, err := h.store.ListAnalysesForQuiz(q.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}
	respondJSON(w, http.StatusOK, analyses)
}

func (h *Handler) handleMyAnalyses(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	analyses, err := h.store.ListAnalysesForStudent(user.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}
	respondJSON(w, http.StatusOK, analyses)
}

func (h *Handler) quizFromPath(w http.ResponseWriter, r *http.Request) (*model.Quiz, bool) {
	q, err := h.store.GetQuizByPublicID(chi.URLParam(r, "publicID"))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return nil, false
	}
	if q == nil {
		respondError(w, r, http.StatusNotFound, "ErrQuizNotFound")
		return nil, false
	}
	return q, true
}

// requestContext bounds model work with the configured per-request budget.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.config.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.config.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

func formBool(r *http.Request, field string) bool {
	v, err := strconv.ParseBool(r.FormValue(field))
	return err == nil && v
}
