package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/eval"
	"github.com/dpshade/promptdiff/internal/models"
	"github.com/dpshade/promptdiff/internal/similarity"
	"github.com/dpshade/promptdiff/internal/storage"
	"github.com/dpshade/promptdiff/internal/store"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	st := store.New(storage.NewMemory(), "/test")
	svc := New(st, opts...)
	if err := svc.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return svc
}

func mustAdd(t *testing.T, svc *Service, name, content string) {
	t.Helper()
	if _, _, err := svc.AddVersion(name, content, store.AddOptions{}); err != nil {
		t.Fatalf("AddVersion failed: %v", err)
	}
}

func TestGetVersionSelectors(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "p", "one\n")
	mustAdd(t, svc, "p", "two\n")
	if _, _, err := svc.AddVersion("p", "three\n", store.AddOptions{Tag: "prod"}); err != nil {
		t.Fatalf("AddVersion failed: %v", err)
	}

	tests := []struct {
		selector string
		want     int
	}{
		{"", 3},
		{"latest", 3},
		{"v2", 2},
		{"2", 2},
		{"-1", 3},
		{"-2", 2},
		{"prod", 3},
	}
	for _, tt := range tests {
		rev, err := svc.GetVersion("p", tt.selector)
		if err != nil {
			t.Errorf("GetVersion(%q) failed: %v", tt.selector, err)
			continue
		}
		if rev.Version != tt.want {
			t.Errorf("GetVersion(%q) = v%d, want v%d", tt.selector, rev.Version, tt.want)
		}
	}
}

func TestGetVersionUnknownSelectorIsTag(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "p", "content\n")

	_, err := svc.GetVersion("p", "no-such-tag")
	if !errors.HasCode(err, errors.ErrCodeTagNotFound) {
		t.Errorf("Expected TagNotFound, got %v", err)
	}
}

func TestDiffAttachesSemanticSimilarity(t *testing.T) {
	svc := newTestService(t, WithScorer(similarity.NewJaccard()))
	mustAdd(t, svc, "p", "summarize this text")
	mustAdd(t, svc, "p", "summarize this article")

	result, err := svc.Diff(context.Background(), "p", "v1", "v2")
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if result.OldVersion != 1 || result.NewVersion != 2 {
		t.Errorf("Diff versions = %d..%d", result.OldVersion, result.NewVersion)
	}
	if result.SemanticSimilarity == nil || *result.SemanticSimilarity != 0.5 {
		t.Errorf("SemanticSimilarity = %v, want 0.5", result.SemanticSimilarity)
	}
}

type failingScorer struct{}

func (failingScorer) Name() string { return "failing" }
func (failingScorer) Score(context.Context, string, string) (float64, error) {
	return 0, fmt.Errorf("provider unreachable")
}

func TestDiffDegradesWithoutScorer(t *testing.T) {
	svc := newTestService(t, WithScorer(failingScorer{}))
	mustAdd(t, svc, "p", "one\n")
	mustAdd(t, svc, "p", "two\n")

	result, err := svc.Diff(context.Background(), "p", "v1", "v2")
	if err != nil {
		t.Fatalf("Diff must survive scorer failure: %v", err)
	}
	if result.SemanticSimilarity != nil {
		t.Error("Semantic similarity must be absent when the scorer fails")
	}
	if result.Additions != 1 || result.Removals != 1 {
		t.Errorf("Textual diff = +%d -%d, want +1 -1", result.Additions, result.Removals)
	}
}

func TestDiffUnified(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "p", "keep\nold\n")
	mustAdd(t, svc, "p", "keep\nnew\n")

	out, err := svc.DiffUnified("p", "v1", "v2")
	if err != nil {
		t.Fatalf("DiffUnified failed: %v", err)
	}
	for _, want := range []string{"--- v1", "+++ v2", "-old", "+new", " keep"} {
		if !strings.Contains(out, want) {
			t.Errorf("Unified output missing %q:\n%s", want, out)
		}
	}
}

func TestChangelog(t *testing.T) {
	svc := newTestService(t)
	if _, _, err := svc.AddVersion("p", "first\n", store.AddOptions{Message: "start"}); err != nil {
		t.Fatalf("AddVersion failed: %v", err)
	}
	mustAdd(t, svc, "p", "second\n")

	out, err := svc.Changelog(context.Background(), "p", 0)
	if err != nil {
		t.Fatalf("Changelog failed: %v", err)
	}
	if !strings.Contains(out, "# Changelog: p") || !strings.Contains(out, "**start**") {
		t.Errorf("Changelog output:\n%s", out)
	}
}

func singleCase(name, expected string) []models.TestCase {
	return []models.TestCase{{Name: name, Input: map[string]string{"text": "AI is cool."}, Expected: expected}}
}

func TestEvaluate(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "summarizer", "Summarize: {text}")

	suite := &eval.Suite{Scorer: "exact", Cases: singleCase("summary", "AI is interesting.")}
	runner := eval.RunnerFunc(func(_ context.Context, content string, vars map[string]string) (string, error) {
		return "AI is interesting.", nil
	})

	result, err := svc.Evaluate(context.Background(), "summarizer", "latest", suite, runner)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := result.MeanScore(); got != 1.0 {
		t.Errorf("MeanScore = %v, want 1.0", got)
	}
	if result.Version != 1 {
		t.Errorf("Version = %d, want 1", result.Version)
	}
}

func TestEvaluateAllRanksVersions(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "p", "wrong answer")
	mustAdd(t, svc, "p", "expected output")

	suite := &eval.Suite{Scorer: "exact", Cases: singleCase("case", "expected output")}
	runner := eval.RunnerFunc(func(_ context.Context, content string, _ map[string]string) (string, error) {
		return content, nil
	})

	cmp, err := svc.EvaluateAll(context.Background(), "p", suite, runner)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(cmp.Versions) != 2 {
		t.Fatalf("Expected 2 version summaries, got %d", len(cmp.Versions))
	}
	if cmp.BestVersion != 2 {
		t.Errorf("BestVersion = %d, want 2", cmp.BestVersion)
	}
}

func TestSearchPrompts(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "email-summarizer", "a\n")
	mustAdd(t, svc, "code-reviewer", "b\n")

	results, err := svc.SearchPrompts("summar")
	if err != nil {
		t.Fatalf("SearchPrompts failed: %v", err)
	}
	if len(results) != 1 || results[0].Name != "email-summarizer" {
		t.Errorf("SearchPrompts = %+v", results)
	}

	all, err := svc.SearchPrompts("")
	if err != nil {
		t.Fatalf("SearchPrompts failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Empty query must return all prompts, got %d", len(all))
	}
}

func TestTagOperations(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "p", "a\n")
	mustAdd(t, svc, "q", "b\n")

	if err := svc.SetTags("p", []string{"prod", "summaries"}); err != nil {
		t.Fatalf("SetTags failed: %v", err)
	}
	if err := svc.AddTags("q", []string{"prod"}); err != nil {
		t.Fatalf("AddTags failed: %v", err)
	}

	names, err := svc.FindByTag("prod")
	if err != nil {
		t.Fatalf("FindByTag failed: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("FindByTag = %v, want both prompts", names)
	}
}

func TestRemovePrompt(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "p", "a\n")

	if err := svc.RemovePrompt("p"); err != nil {
		t.Fatalf("RemovePrompt failed: %v", err)
	}
	_, err := svc.GetVersion("p", "latest")
	if !errors.HasCode(err, errors.ErrCodePromptNotFound) {
		t.Errorf("Expected PromptNotFound after removal, got %v", err)
	}
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		selector string
		version  int
		numeric  bool
	}{
		{"", store.Latest, true},
		{"latest", store.Latest, true},
		{"3", 3, true},
		{"v3", 3, true},
		{"V3", 3, true},
		{"-1", -1, true},
		{"prod", 0, false},
		{"v1.2", 0, false},
	}
	for _, tt := range tests {
		version, numeric := parseSelector(tt.selector)
		if version != tt.version || numeric != tt.numeric {
			t.Errorf("parseSelector(%q) = (%d, %v), want (%d, %v)",
				tt.selector, version, numeric, tt.version, tt.numeric)
		}
	}
}
