// Package quiz defines the quiz document value type and recovers valid
// documents from untrusted model output.
package quiz

import (
	"errors"
	"fmt"
)

// Question kinds, using the wire names the frontend survey widget expects.
const (
	KindSingleChoice = "radiogroup"
	KindFillBlank    = "text"
)

// FallbackQuestionName marks the single question of the fallback document so
// callers can detect the degraded path.
const FallbackQuestionName = "fallback-q1"

// Document is a generated quiz: ordered pages of ordered questions.
// Documents are built once by Recover (or Fallback) and read-only afterwards.
type Document struct {
	Pages []Page `json:"pages"`
}

// Page holds an ordered group of questions.
type Page struct {
	Elements []Question `json:"elements"`
}

// Question is a single quiz item. Choices is present only for
// single-choice questions.
type Question struct {
	Type          string   `json:"type"`
	Name          string   `json:"name"`
	Title         string   `json:"title"`
	Choices       []string `json:"choices,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Validate checks the document invariants: every question has a non-empty
// name unique within the document, a known kind, a non-empty reference
// answer, and single-choice questions list the reference answer among a
// non-empty choice set.
func (d Document) Validate() error {
	if len(d.Pages) == 0 {
		return errors.New("document has no pages")
	}
	seen := make(map[string]bool)
	for pi, p := range d.Pages {
		for qi, q := range p.Elements {
			where := fmt.Sprintf("page %d question %d", pi, qi)
			if q.Name == "" {
				return fmt.Errorf("%s: empty name", where)
			}
			if seen[q.Name] {
				return fmt.Errorf("%s: duplicate name %q", where, q.Name)
			}
			seen[q.Name] = true
			if q.CorrectAnswer == "" {
				return fmt.Errorf("%s: empty reference answer", where)
			}
			switch q.Type {
			case KindSingleChoice:
				if len(q.Choices) == 0 {
					return fmt.Errorf("%s: single-choice question without choices", where)
				}
				found := false
				for _, c := range q.Choices {
					if c == q.CorrectAnswer {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("%s: reference answer %q not among choices", where, q.CorrectAnswer)
				}
			case KindFillBlank:
				if len(q.Choices) != 0 {
					return fmt.Errorf("%s: fill-in-blank question with choices", where)
				}
			default:
				return fmt.Errorf("%s: unknown kind %q", where, q.Type)
			}
		}
	}
	if len(seen) == 0 {
		return errors.New("document has no questions")
	}
	return nil
}

// QuestionCount returns the total number of questions across all pages.
func (d Document) QuestionCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Elements)
	}
	return n
}

// IsFallback reports whether the document is the deterministic fallback
// produced when no quiz could be recovered from the model response.
func (d Document) IsFallback() bool {
	return d.QuestionCount() == 1 &&
		len(d.Pages) == 1 &&
		d.Pages[0].Elements[0].Name == FallbackQuestionName
}

// Fallback builds the minimal valid document used when every recovery
// strategy fails: one single-choice question whose reference answer is the
// first placeholder choice.
func Fallback() Document {
	choices := []string{
		"Upload the material again and retry",
		"Placeholder option B",
		"Placeholder option C",
	}
	return Document{Pages: []Page{{Elements: []Question{{
		Type:          KindSingleChoice,
		Name:          FallbackQuestionName,
		Title:         "Quiz generation could not produce questions from this material. What should you do?",
		Choices:       choices,
		CorrectAnswer: choices[0],
	}}}}}
}
