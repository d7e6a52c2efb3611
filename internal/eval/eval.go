// Package eval scores prompt revisions against labeled test cases.
//
// Execution and scoring are caller-supplied capabilities: the Runner turns a
// prompt plus input variables into an output (typically by calling an LLM
// backend), and the CaseScorer grades that output against the expectation.
// A single case failing never aborts the run; it scores 0 with the failure
// recorded on the case.
package eval

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dpshade/promptdiff/internal/diff"
	"github.com/dpshade/promptdiff/internal/models"
	"github.com/dpshade/promptdiff/internal/renderer"
)

// Runner executes a prompt against one set of input variables.
type Runner interface {
	Run(ctx context.Context, content string, vars map[string]string) (string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, content string, vars map[string]string) (string, error)

func (f RunnerFunc) Run(ctx context.Context, content string, vars map[string]string) (string, error) {
	return f(ctx, content, vars)
}

// TemplateRunner is the default runner: it fills {var} placeholders and
// returns the rendered prompt without calling any model.
type TemplateRunner struct{}

func (TemplateRunner) Run(_ context.Context, content string, vars map[string]string) (string, error) {
	return renderer.Render(content, vars), nil
}

// CaseScorer grades an output against the expected output, in [0,1].
type CaseScorer interface {
	Name() string
	Score(output, expected string) (float64, error)
}

// ExactMatch scores 1.0 when output equals expected after trimming
// surrounding whitespace, else 0.0.
type ExactMatch struct{}

func (ExactMatch) Name() string { return "exact-match" }

func (ExactMatch) Score(output, expected string) (float64, error) {
	if strings.TrimSpace(output) == strings.TrimSpace(expected) {
		return 1.0, nil
	}
	return 0.0, nil
}

// Contains scores 1.0 when expected appears inside output, else 0.0.
type Contains struct{}

func (Contains) Name() string { return "contains" }

func (Contains) Score(output, expected string) (float64, error) {
	if strings.Contains(strings.TrimSpace(output), strings.TrimSpace(expected)) {
		return 1.0, nil
	}
	return 0.0, nil
}

// TextSimilarity scores by the line-alignment similarity ratio of the diff
// engine.
type TextSimilarity struct {
	differ *diff.Engine
}

// NewTextSimilarity creates the diff-backed scorer.
func NewTextSimilarity(differ *diff.Engine) TextSimilarity {
	return TextSimilarity{differ: differ}
}

func (TextSimilarity) Name() string { return "text-similarity" }

func (s TextSimilarity) Score(output, expected string) (float64, error) {
	return s.differ.Compute(expected, output).SimilarityRatio, nil
}

// ScorerByName resolves a built-in scorer identifier. Unknown names fall
// back to text similarity.
func ScorerByName(name string, differ *diff.Engine) CaseScorer {
	switch name {
	case "exact-match", "exact":
		return ExactMatch{}
	case "contains":
		return Contains{}
	default:
		return NewTextSimilarity(differ)
	}
}

// Evaluator applies a revision's content to test cases and aggregates
// scores.
type Evaluator struct {
	runner Runner
	scorer CaseScorer
}

// NewEvaluator creates an evaluator. A nil runner falls back to the
// template runner; a nil scorer falls back to text similarity.
func NewEvaluator(runner Runner, scorer CaseScorer) *Evaluator {
	if runner == nil {
		runner = TemplateRunner{}
	}
	if scorer == nil {
		scorer = NewTextSimilarity(diff.NewEngine())
	}
	return &Evaluator{runner: runner, scorer: scorer}
}

// Evaluate runs every test case against the prompt content. Case failures
// are isolated: a failed execution or scoring records score 0 with an error
// note and evaluation continues.
func (e *Evaluator) Evaluate(ctx context.Context, name string, version int, content string, cases []models.TestCase) *models.EvalResult {
	result := &models.EvalResult{
		RunID:      uuid.NewString(),
		PromptName: name,
		Version:    version,
		Cases:      make([]models.CaseResult, 0, len(cases)),
	}

	for _, tc := range cases {
		cr := models.CaseResult{
			Name:     tc.Name,
			Input:    tc.Input,
			Expected: tc.Expected,
			Weight:   tc.Weight,
		}

		output, err := e.runner.Run(ctx, content, tc.Input)
		if err != nil {
			cr.Error = "execution failed: " + err.Error()
			result.Cases = append(result.Cases, cr)
			continue
		}
		cr.Output = output

		score, err := e.scorer.Score(output, tc.Expected)
		if err != nil {
			cr.Error = "scoring failed: " + err.Error()
			result.Cases = append(result.Cases, cr)
			continue
		}
		cr.Score = clamp01(score)

		result.Cases = append(result.Cases, cr)
	}

	return result
}

// VersionScore summarizes one evaluated version for comparison.
type VersionScore struct {
	Version       int     `json:"version"`
	MeanScore     float64 `json:"mean_score"`
	WeightedScore float64 `json:"weighted_score"`
	Passed        bool    `json:"passed"`
}

// Comparison ranks evaluation results across versions of one prompt.
type Comparison struct {
	Versions    []VersionScore `json:"versions"`
	BestVersion int            `json:"best_version,omitempty"`
}

// Compare summarizes results across versions, picking the best by weighted
// score.
func Compare(results []*models.EvalResult) Comparison {
	cmp := Comparison{}
	best := -1.0
	for _, r := range results {
		vs := VersionScore{
			Version:       r.Version,
			MeanScore:     r.MeanScore(),
			WeightedScore: r.WeightedScore(),
			Passed:        r.Passed(),
		}
		cmp.Versions = append(cmp.Versions, vs)
		if vs.WeightedScore > best {
			best = vs.WeightedScore
			cmp.BestVersion = vs.Version
		}
	}
	return cmp
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
