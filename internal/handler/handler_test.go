package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/analysis"
	"github.com/quizforge/quizforge/internal/i18n"
	"github.com/quizforge/quizforge/internal/llm"
	"github.com/quizforge/quizforge/internal/model"
	"github.com/quizforge/quizforge/internal/retry"
	"github.com/quizforge/quizforge/internal/store"
)

const quizJSON = `{"pages":[{"elements":[` +
	`{"type":"radiogroup","name":"q1","title":"2+2?","choices":["3","4"],"correctAnswer":"4"},` +
	`{"type":"text","name":"q2","title":"Capital of France?","correctAnswer":"Paris"}]}]}`

// fakeGen scripts Generate responses per call.
type fakeGen struct {
	calls     int
	responses []string
	errs      []error
}

func (f *fakeGen) Generate(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

type testEnv struct {
	router chi.Router
	store  *store.Store
	gen    *fakeGen
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	gen := &fakeGen{}
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: llm.Transient}
	h := New(s, gen, analysis.New(gen, policy), policy, quizJSON, model.ServerConfig{})

	r := chi.NewRouter()
	h.Routes(r)
	return &testEnv{router: r, store: s, gen: gen}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup registers and logs in a user, returning the session cookie.
func (e *testEnv) signup(t *testing.T, username, role string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"secret","role":%q}`, username, role)
	rec := e.do(t, httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body)), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, rec.Code, rec.Body.String())
	}

	body = fmt.Sprintf(`{"username":%q,"password":"secret"}`, username)
	rec = e.do(t, httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body)), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

func uploadRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/quizzes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func defaultFields() map[string]string {
	return map[string]string{
		"count":        "5",
		"difficulty":   "medium",
		"singleChoice": "true",
		"fillBlank":    "true",
	}
}

func TestLoginRequired(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest("GET", "/api/courses", nil), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "teacher")

	rec := env.do(t, httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"nope"}`)), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", rec.Code)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "student")

	rec := env.do(t, httptest.NewRequest("POST", "/api/auth/register",
		strings.NewReader(`{"username":"alice","password":"other"}`)), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", rec.Code)
	}
}

func TestCreateQuiz(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "teach", "teacher")
	env.gen.responses = []string{"Here is your quiz: " + quizJSON + " Enjoy!"}

	rec := env.do(t, uploadRequest(t, defaultFields(), "cells.txt", "mitochondria are the powerhouse"), cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created model.Quiz
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.PublicID == "" {
		t.Error("expected a public ID")
	}
	if created.QuestionCount != 2 {
		t.Errorf("expected 2 questions recovered from prose-wrapped JSON, got %d", created.QuestionCount)
	}
	if env.gen.calls != 1 {
		t.Errorf("expected 1 model call, got %d", env.gen.calls)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "teach", "teacher")

	tests := []struct {
		name     string
		mutate   func(map[string]string)
		filename string
		content  string
	}{
		{"count too low", func(f map[string]string) { f["count"] = "4" }, "a.txt", "text"},
		{"count too high", func(f map[string]string) { f["count"] = "21" }, "a.txt", "text"},
		{"count not a number", func(f map[string]string) { f["count"] = "many" }, "a.txt", "text"},
		{"bad difficulty", func(f map[string]string) { f["difficulty"] = "extreme" }, "a.txt", "text"},
		{"bad file type", func(map[string]string) {}, "a.docx", "text"},
		{"empty file", func(map[string]string) {}, "a.txt", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := defaultFields()
			tt.mutate(fields)
			rec := env.do(t, uploadRequest(t, fields, tt.filename, tt.content), cookie)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if env.gen.calls != 0 {
				t.Errorf("validation failure must not call the model, got %d calls", env.gen.calls)
			}
		})
	}
}

func TestCreateQuizRequiresTeacher(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "student", "student")

	rec := env.do(t, uploadRequest(t, defaultFields(), "a.txt", "text"), cookie)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for student, got %d", rec.Code)
	}
}

func TestCreateQuizGenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "teach", "teacher")
	transient := &llm.ModelError{Cause: llm.CauseTimeout}
	env.gen.errs = []error{transient, transient, transient}

	rec := env.do(t, uploadRequest(t, defaultFields(), "a.txt", "text"), cookie)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.gen.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", env.gen.calls)
	}
}

func TestCreateQuizFallsBackOnGarbage(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "teach", "teacher")
	env.gen.responses = []string{"I cannot help with that."}

	rec := env.do(t, uploadRequest(t, defaultFields(), "a.txt", "text"), cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created model.Quiz
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !created.Document.IsFallback() {
		t.Errorf("expected fallback document, got %+v", created.Document)
	}
}

func TestSubmitAnswers(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teach", "teacher")
	student := env.signup(t, "student", "student")

	env.gen.responses = []string{quizJSON}
	rec := env.do(t, uploadRequest(t, defaultFields(), "a.txt", "text"), teacher)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create quiz: %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Quiz
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal quiz: %v", err)
	}

	// One right, one wrong. The narrative comes from the model.
	env.gen.responses = append(env.gen.responses, "## Review addition")
	body := `{"answers":{"q1":"3","q2":"paris"}}`
	rec = env.do(t, httptest.NewRequest("POST", "/api/quizzes/"+created.PublicID+"/answers",
		strings.NewReader(body)), student)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit answers: %d: %s", rec.Code, rec.Body.String())
	}

	var result model.GradingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.TotalQuestions != 2 || result.CorrectCount != 1 || result.IncorrectCount != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.IncorrectQuestions) != 1 || result.IncorrectQuestions[0].UserAnswer != "3" {
		t.Errorf("unexpected mismatches: %+v", result.IncorrectQuestions)
	}
	if result.KnowledgeAnalysis != "## Review addition" {
		t.Errorf("unexpected narrative %q", result.KnowledgeAnalysis)
	}

	// The submission is recorded.
	rec = env.do(t, httptest.NewRequest("GET", "/api/me/analyses", nil), student)
	if rec.Code != http.StatusOK {
		t.Fatalf("list analyses: %d", rec.Code)
	}
	var analyses []model.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analyses); err != nil {
		t.Fatalf("unmarshal analyses: %v", err)
	}
	if len(analyses) != 1 {
		t.Fatalf("expected 1 stored analysis, got %d", len(analyses))
	}
}

func TestSubmitPerfectScoreSkipsModel(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teach", "teacher")

	env.gen.responses = []string{quizJSON}
	rec := env.do(t, uploadRequest(t, defaultFields(), "a.txt", "text"), teacher)
	var created model.Quiz
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal quiz: %v", err)
	}
	callsAfterCreate := env.gen.calls

	body := `{"answers":{"q1":"4","q2":"Paris"}}`
	rec = env.do(t, httptest.NewRequest("POST", "/api/quizzes/"+created.PublicID+"/answers",
		strings.NewReader(body)), teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit answers: %d: %s", rec.Code, rec.Body.String())
	}

	var result model.GradingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.IncorrectCount != 0 {
		t.Errorf("expected perfect score, got %+v", result)
	}
	if !strings.Contains(result.KnowledgeAnalysis, "Congratulations") {
		t.Errorf("expected fixed success message, got %q", result.KnowledgeAnalysis)
	}
	if env.gen.calls != callsAfterCreate {
		t.Errorf("perfect score must not call the model, calls went %d -> %d", callsAfterCreate, env.gen.calls)
	}
}

func TestSubmitAnswersUnknownQuiz(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "student", "student")

	rec := env.do(t, httptest.NewRequest("POST", "/api/quizzes/no-such-id/answers",
		strings.NewReader(`{"answers":{}}`)), cookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestEnrollmentFlow(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teach", "teacher")
	student := env.signup(t, "student", "student")

	rec := env.do(t, httptest.NewRequest("POST", "/api/courses",
		strings.NewReader(`{"name":"Biology","capacity":1}`)), teacher)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create course: %d: %s", rec.Code, rec.Body.String())
	}
	var course model.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &course); err != nil {
		t.Fatalf("unmarshal course: %v", err)
	}

	path := fmt.Sprintf("/api/courses/%d/enroll", course.ID)
	rec = env.do(t, httptest.NewRequest("POST", path, nil), student)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("enroll: %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, httptest.NewRequest("POST", path, nil), student)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for double enroll, got %d", rec.Code)
	}

	rec = env.do(t, httptest.NewRequest("GET", fmt.Sprintf("/api/courses/%d/students", course.ID), nil), teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("list students: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "student") {
		t.Errorf("expected enrolled student in listing, got %s", rec.Body.String())
	}

	rec = env.do(t, httptest.NewRequest("DELETE", path, nil), student)
	if rec.Code != http.StatusNoContent {
		t.Errorf("drop: expected 204, got %d", rec.Code)
	}
}

func TestCourseScoreFlow(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teach", "teacher")
	student := env.signup(t, "student", "student")

	rec := env.do(t, httptest.NewRequest("POST", "/api/courses",
		strings.NewReader(`{"name":"Physics"}`)), teacher)
	var course model.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &course); err != nil {
		t.Fatalf("unmarshal course: %v", err)
	}
	rec = env.do(t, httptest.NewRequest("POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), nil), student)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("enroll: %d", rec.Code)
	}

	target, err := env.store.GetUserByUsername("student")
	if err != nil || target == nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	scorePath := fmt.Sprintf("/api/courses/%d/scores/%d", course.ID, target.ID)
	rec = env.do(t, httptest.NewRequest("PUT", scorePath, strings.NewReader(`{"score":92.5}`)), teacher)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set score: %d: %s", rec.Code, rec.Body.String())
	}

	// Students cannot set scores.
	rec = env.do(t, httptest.NewRequest("PUT", scorePath, strings.NewReader(`{"score":100}`)), student)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for student setting score, got %d", rec.Code)
	}

	rec = env.do(t, httptest.NewRequest("GET", "/api/me/scores", nil), student)
	if rec.Code != http.StatusOK {
		t.Fatalf("list scores: %d", rec.Code)
	}
	var scores []model.CourseScore
	if err := json.Unmarshal(rec.Body.Bytes(), &scores); err != nil {
		t.Fatalf("unmarshal scores: %v", err)
	}
	if len(scores) != 1 || scores[0].Score == nil || *scores[0].Score != 92.5 {
		t.Errorf("unexpected scores: %+v", scores)
	}
}

func TestAdminToggleUser(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup(t, "student", "student")

	// Admins are seeded, never self-registered.
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, err := env.store.CreateUser(model.User{
		Username: "root", PasswordHash: string(hash), Role: model.UserRoleAdmin, Active: true,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	rec := env.do(t, httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"username":"root","password":"secret"}`)), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: %d: %s", rec.Code, rec.Body.String())
	}
	var admin *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			admin = c
		}
	}
	if admin == nil {
		t.Fatal("no admin session cookie")
	}

	rec = env.do(t, httptest.NewRequest("GET", "/api/admin/users", nil), admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: %d", rec.Code)
	}

	target, err := env.store.GetUserByUsername("student")
	if err != nil || target == nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	rec = env.do(t, httptest.NewRequest("POST", fmt.Sprintf("/api/admin/users/%d/toggle", target.ID), nil), admin)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("toggle: %d: %s", rec.Code, rec.Body.String())
	}

	// A deactivated user loses access.
	rec = env.do(t, httptest.NewRequest("GET", "/api/courses", nil), student)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for deactivated user, got %d", rec.Code)
	}

	// Students cannot reach admin routes.
	rec = env.do(t, httptest.NewRequest("GET", "/api/admin/users", nil), student)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestEnrollRequiresStudentRole(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teach", "teacher")

	rec := env.do(t, httptest.NewRequest("POST", "/api/courses",
		strings.NewReader(`{"name":"Bio"}`)), teacher)
	var course model.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &course); err != nil {
		t.Fatalf("unmarshal course: %v", err)
	}

	rec = env.do(t, httptest.NewRequest("POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), nil), teacher)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for teacher enrolling, got %d", rec.Code)
	}
}
