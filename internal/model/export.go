package model

import "time"

// CourseExport is the top-level JSON structure for course result export.
type CourseExport struct {
	CourseName string          `json:"course_name"`
	Teacher    string          `json:"teacher"`
	ExportedAt time.Time       `json:"exported_at"`
	Results    []StudentResult `json:"results"`
}

// StudentResult holds one student's quiz attempts for export.
type StudentResult struct {
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	Attempts    []QuizAttempt `json:"attempts"`
}

// QuizAttempt holds per-quiz data for export.
type QuizAttempt struct {
	QuizTitle      string    `json:"quiz_title"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_count"`
	IncorrectCount int       `json:"incorrect_count"`
	Narrative      string    `json:"narrative"`
	TakenAt        time.Time `json:"taken_at"`
}
