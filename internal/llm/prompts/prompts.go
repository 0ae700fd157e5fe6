// Package prompts builds the generation and analysis prompts from embedded
// templates. Builders are pure string construction; no model calls happen
// here.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"text/template"

	"github.com/quizforge/quizforge/internal/grader"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

// DefaultMaxSourceRunes bounds how much source text is embedded into a
// generation prompt.
const DefaultMaxSourceRunes = 3000

// GenerationInput collects everything a generation prompt needs. It is a
// transient value, alive for one pipeline invocation.
type GenerationInput struct {
	SourceText        string
	Count             int
	Difficulty        string
	AllowSingleChoice bool
	AllowFillBlank    bool
	Notes             string
	// SchemaExample is the canonical example JSON embedded verbatim to
	// anchor the model's output format.
	SchemaExample string
	// MaxSourceRunes overrides DefaultMaxSourceRunes when positive.
	MaxSourceRunes int
}

// BuildGenerationPrompt renders the quiz-generation prompt. Source text is
// cut to the rune budget with a plain prefix truncation. When the caller
// enables neither question kind the prompt requests single-choice only; a
// prompt asking for zero kinds is never produced.
func BuildGenerationPrompt(in GenerationInput) (string, error) {
	budget := in.MaxSourceRunes
	if budget <= 0 {
		budget = DefaultMaxSourceRunes
	}

	data := struct {
		Count           int
		Difficulty      string
		KindInstruction string
		Notes           string
		SourceText      string
		SchemaExample   string
	}{
		Count:           in.Count,
		Difficulty:      in.Difficulty,
		KindInstruction: kindInstruction(in.AllowSingleChoice, in.AllowFillBlank),
		Notes:           in.Notes,
		SourceText:      truncateRunes(in.SourceText, budget),
		SchemaExample:   in.SchemaExample,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "generation.txt", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildAnalysisPrompt renders the gap-analysis prompt for a grading report.
// It is deterministic; callers with a zero-incorrect report should skip the
// model entirely and use the fixed success message instead.
func BuildAnalysisPrompt(report grader.Report) (string, error) {
	mismatchJSON, err := json.MarshalIndent(report.IncorrectQuestions, "", "  ")
	if err != nil {
		return "", err
	}

	data := struct {
		Total        int
		Correct      int
		Incorrect    int
		MismatchJSON string
	}{
		Total:        report.TotalQuestions,
		Correct:      report.CorrectCount,
		Incorrect:    report.IncorrectCount,
		MismatchJSON: string(mismatchJSON),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "analysis.txt", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func kindInstruction(single, fill bool) string {
	switch {
	case single && fill:
		return `Mix single-choice questions (type "radiogroup") and fill-in-blank questions (type "text").`
	case fill:
		return `Generate only fill-in-blank questions (type "text").`
	default:
		// Single-choice only, also the default when the caller requested
		// no kinds at all.
		return `Generate only single-choice questions (type "radiogroup").`
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
