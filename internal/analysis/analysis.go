// Package analysis turns a grading report into a remediation narrative.
package analysis

import (
	"context"
	"log/slog"

	"github.com/quizforge/quizforge/internal/grader"
	"github.com/quizforge/quizforge/internal/i18n"
	"github.com/quizforge/quizforge/internal/llm"
	"github.com/quizforge/quizforge/internal/llm/prompts"
	"github.com/quizforge/quizforge/internal/retry"
)

// Composer produces the knowledge-gap narrative for a grading report. The
// generator is injected so tests run without a model endpoint.
type Composer struct {
	gen    llm.Generator
	policy retry.Policy
}

// New creates a Composer using the given gateway and retry policy.
func New(gen llm.Generator, policy retry.Policy) *Composer {
	return &Composer{gen: gen, policy: policy}
}

// Compose always returns narrative text, never an error. A report with no
// incorrect answers short-circuits to the fixed success message without
// touching the model. When narrative generation fails after retries the
// returned text embeds the surfaced error message; a grading result without
// a model-written narrative is still a complete result.
func (c *Composer) Compose(ctx context.Context, report grader.Report) string {
	if report.IncorrectCount == 0 {
		return i18n.T(ctx, "AnalysisSuccess")
	}

	prompt, err := prompts.BuildAnalysisPrompt(report)
	if err != nil {
		slog.Error("building analysis prompt failed", "error", err)
		return i18n.Td(ctx, "AnalysisFailure", map[string]any{"Error": err.Error()})
	}

	narrative, err := retry.Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		return c.gen.Generate(ctx, prompt)
	})
	if err != nil {
		slog.Error("narrative generation failed", "error", err)
		return i18n.Td(ctx, "AnalysisFailure", map[string]any{"Error": err.Error()})
	}
	return narrative
}
