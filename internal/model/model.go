package model

import (
	"context"
	"time"

	"github.com/quizforge/quizforge/internal/grader"
	"github.com/quizforge/quizforge/internal/quiz"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Difficulty represents quiz difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ValidDifficulty reports whether d is a recognized difficulty level.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question count bounds accepted for quiz synthesis.
const (
	MinQuestions = 5
	MaxQuestions = 20
)

// Course represents a teacher's course that quizzes belong to.
type Course struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeacherID   int64     `json:"teacher_id"`
	Capacity    int       `json:"capacity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrollment ties a student to a course. Score stays nil until the teacher
// records one.
type Enrollment struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	StudentID int64     `json:"student_id"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CourseScore is a student-facing view of one enrollment.
type CourseScore struct {
	CourseID   int64    `json:"courseId"`
	CourseName string   `json:"courseName"`
	Score      *float64 `json:"score"`
}

// Quiz is a stored synthesized quiz. Document holds the full recovered
// question set, including the fallback document when recovery bottomed out.
type Quiz struct {
	ID            int64         `json:"id"`
	PublicID      string        `json:"public_id"`
	CourseID      *int64        `json:"course_id,omitempty"`
	Title         string        `json:"title"`
	SourceFile    string        `json:"source_file"`
	Document      quiz.Document `json:"document"`
	QuestionCount int           `json:"question_count"`
	Difficulty    Difficulty    `json:"difficulty"`
	CreatedBy     int64         `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Analysis is a stored grading result with its remediation narrative.
type Analysis struct {
	ID        int64         `json:"id"`
	QuizID    int64         `json:"quiz_id"`
	StudentID int64         `json:"student_id"`
	Report    grader.Report `json:"report"`
	Narrative string        `json:"narrative"`
	CreatedAt time.Time     `json:"created_at"`
}

// GradingResult is the API response for a graded submission.
type GradingResult struct {
	TotalQuestions     int               `json:"totalQuestions"`
	CorrectCount       int               `json:"correctCount"`
	IncorrectCount     int               `json:"incorrectCount"`
	IncorrectQuestions []grader.Mismatch `json:"incorrectQuestions"`
	KnowledgeAnalysis  string            `json:"knowledgeAnalysis"`
}

// ServerConfig holds runtime parameters set via CLI flags and environment.
type ServerConfig struct {
	Addr           string
	DBPath         string
	Lang           string
	SecureCookies  bool // Set Secure flag on cookies (disable for local dev)
	MaxUploadMB    int64
	RequestTimeout time.Duration // per-request budget for model calls, 0 = none
	MaxSourceRunes int           // source text cut for generation prompts, 0 = default
}
