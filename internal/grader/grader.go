// Package grader compares learner answers against a quiz document and
// builds a mismatch report.
package grader

import (
	"strings"

	"github.com/quizforge/quizforge/internal/quiz"
)

// Mismatch records one incorrectly answered question. Field names follow
// the wire format the frontend consumes.
type Mismatch struct {
	Question      string   `json:"question"`
	Kind          string   `json:"kind"`
	UserAnswer    string   `json:"userAnswer"`
	CorrectAnswer string   `json:"correctAnswer"`
	Options       []string `json:"options,omitempty"`
}

// Report is the outcome of grading one answer set against one document.
// TotalQuestions counts only questions answered by the learner;
// TotalQuestions = CorrectCount + IncorrectCount always holds.
type Report struct {
	TotalQuestions     int        `json:"totalQuestions"`
	CorrectCount       int        `json:"correctCount"`
	IncorrectCount     int        `json:"incorrectCount"`
	IncorrectQuestions []Mismatch `json:"incorrectQuestions"`
}

// Grade walks the document in page order and grades every question whose
// name appears in answers. Questions the learner skipped, and answer keys
// that match no question, are excluded rather than counted wrong. A
// degenerate document contributes zero gradable questions; Grade never
// fails.
//
// Fill-in-blank answers are compared case-insensitively after trimming
// surrounding whitespace: spacing and case differences are deliberately not
// wrong. Single-choice answers must match the reference verbatim, since
// choice values are returned unmodified by the answering client.
func Grade(doc quiz.Document, answers map[string]string) Report {
	report := Report{IncorrectQuestions: []Mismatch{}}

	for _, page := range doc.Pages {
		for _, q := range page.Elements {
			submitted, ok := answers[q.Name]
			if !ok {
				continue
			}
			report.TotalQuestions++
			if answerMatches(q, submitted) {
				report.CorrectCount++
				continue
			}
			report.IncorrectCount++
			report.IncorrectQuestions = append(report.IncorrectQuestions, Mismatch{
				Question:      q.Title,
				Kind:          q.Type,
				UserAnswer:    submitted,
				CorrectAnswer: q.CorrectAnswer,
				Options:       q.Choices,
			})
		}
	}
	return report
}

func answerMatches(q quiz.Question, submitted string) bool {
	if q.Type == quiz.KindFillBlank {
		return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(q.CorrectAnswer))
	}
	return submitted == q.CorrectAnswer
}
