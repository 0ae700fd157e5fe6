package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		teacher_id INTEGER NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (teacher_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		score REAL,
		created_at DATETIME NOT NULL,
		UNIQUE (course_id, student_id),
		FOREIGN KEY (course_id) REFERENCES courses(id),
		FOREIGN KEY (student_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		public_id TEXT NOT NULL UNIQUE,
		course_id INTEGER,
		title TEXT NOT NULL,
		source_file TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL,
		question_count INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		created_by INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (course_id) REFERENCES courses(id),
		FOREIGN KEY (created_by) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		quiz_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		report TEXT NOT NULL,
		narrative TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id),
		FOREIGN KEY (student_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateQuiz stores a synthesized quiz and assigns it a public ID.
func (s *Store) CreateQuiz(q model.Quiz) (model.Quiz, error) {
	doc, err := json.Marshal(q.Document)
	if err != nil {
		return model.Quiz{}, fmt.Errorf("marshal document: %w", err)
	}
	q.PublicID = uuid.NewString()
	q.CreatedAt = time.Now()
	res, err := s.db.Exec(
		`INSERT INTO quizzes (public_id, course_id, title, source_file, document, question_count, difficulty, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.PublicID, q.CourseID, q.Title, q.SourceFile, string(doc), q.QuestionCount, q.Difficulty, q.CreatedBy, q.CreatedAt,
	)
	if err != nil {
		return model.Quiz{}, err
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		return model.Quiz{}, err
	}
	return q, nil
}

// GetQuizByPublicID returns a quiz by its public ID, or nil if not found.
func (s *Store) GetQuizByPublicID(publicID string) (*model.Quiz, error) {
	return s.scanQuiz(s.db.QueryRow(
		`SELECT id, public_id, course_id, title, source_file, document, question_count, difficulty, created_by, created_at
		 FROM quizzes WHERE public_id = ?`, publicID,
	))
}

// GetQuiz returns a quiz by internal ID, or nil if not found.
func (s *Store) GetQuiz(id int64) (*model.Quiz, error) {
	return s.scanQuiz(s.db.QueryRow(
		`SELECT id, public_id, course_id, title, source_file, document, question_count, difficulty, created_by, created_at
		 FROM quizzes WHERE id = ?`, id,
	))
}

func (s *Store) scanQuiz(row *sql.Row) (*model.Quiz, error) {
	var q model.Quiz
	var doc string
	err := row.Scan(&q.ID, &q.PublicID, &q.CourseID, &q.Title, &q.SourceFile, &doc,
		&q.QuestionCount, &q.Difficulty, &q.CreatedBy, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(doc), &q.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &q, nil
}

// ListQuizzesByCreator returns quizzes created by the given user, newest first.
func (s *Store) ListQuizzesByCreator(userID int64) ([]model.Quiz, error) {
	rows, err := s.db.Query(
		`SELECT id, public_id, course_id, title, source_file, document, question_count, difficulty, created_by, created_at
		 FROM quizzes WHERE created_by = ? ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuizzes(rows)
}

// ListQuizzesByCourse returns quizzes attached to the given course, newest first.
func (s *Store) ListQuizzesByCourse(courseID int64) ([]model.Quiz, error) {
	rows, err := s.db.Query(
		`SELECT id, public_id, course_id, title, source_file, document, question_count, difficulty, created_by, created_at
		 FROM quizzes WHERE course_id = ? ORDER BY id DESC`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuizzes(rows)
}

func collectQuizzes(rows *sql.Rows) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		var doc string
		if err := rows.Scan(&q.ID, &q.PublicID, &q.CourseID, &q.Title, &q.SourceFile, &doc,
			&q.QuestionCount, &q.Difficulty, &q.CreatedBy, &q.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(doc), &q.Document); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// CreateAnalysis stores a grading report with its narrative.
func (s *Store) CreateAnalysis(a model.Analysis) (int64, error) {
	report, err := json.Marshal(a.Report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO analyses (quiz_id, student_id, report, narrative, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.QuizID, a.StudentID, string(report), a.Narrative, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAnalysesForQuiz returns all analyses recorded for a quiz, newest first.
func (s *Store) ListAnalysesForQuiz(quizID int64) ([]model.Analysis, error) {
	rows, err := s.db.Query(
		`SELECT id, quiz_id, student_id, report, narrative, created_at
		 FROM analyses WHERE quiz_id = ? ORDER BY id DESC`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// ListAnalysesForStudent returns a student's analyses, newest first.
func (s *Store) ListAnalysesForStudent(studentID int64) ([]model.Analysis, error) {
	rows, err := s.db.Query(
		`SELECT id, quiz_id, student_id, report, narrative, created_at
		 FROM analyses WHERE student_id = ? ORDER BY id DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

func collectAnalyses(rows *sql.Rows) ([]model.Analysis, error) {
	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func scanAnalysis(rows *sql.Rows) (model.Analysis, error) {
	var a model.Analysis
	var report string
	if err := rows.Scan(&a.ID, &a.QuizID, &a.StudentID, &report, &a.Narrative, &a.CreatedAt); err != nil {
		return model.Analysis{}, err
	}
	if err := json.Unmarshal([]byte(report), &a.Report); err != nil {
		return model.Analysis{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return a, nil
}

// QuizCount returns the number of stored quizzes.
func (s *Store) QuizCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM quizzes`).Scan(&count)
	return count, err
}
