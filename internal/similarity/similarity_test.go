package similarity

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/dpshade/promptdiff/internal/errors"
)

func TestJaccardIdenticalTexts(t *testing.T) {
	scorer := NewJaccard()
	score, err := scorer.Score(context.Background(), "Hello world", "Hello world")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected 1.0 for identical texts, got %v", score)
	}
}

func TestJaccardBothEmpty(t *testing.T) {
	scorer := NewJaccard()
	score, err := scorer.Score(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected 1.0 for two empty texts, got %v", score)
	}
}

func TestJaccardOneEmpty(t *testing.T) {
	scorer := NewJaccard()
	score, err := scorer.Score(context.Background(), "some words", "")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.0 {
		t.Errorf("Expected 0.0 when one text is empty, got %v", score)
	}
}

func TestJaccardSymmetric(t *testing.T) {
	scorer := NewJaccard()
	pairs := [][2]string{
		{"AI is cool.", "AI is interesting."},
		{"summarize the following text", "translate the following text"},
		{"one two three", "four five six"},
	}
	for _, pair := range pairs {
		ab, err := scorer.Score(context.Background(), pair[0], pair[1])
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		ba, err := scorer.Score(context.Background(), pair[1], pair[0])
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if ab != ba {
			t.Errorf("Score(%q, %q)=%v but reversed=%v", pair[0], pair[1], ab, ba)
		}
	}
}

func TestJaccardCaseAndPunctuation(t *testing.T) {
	scorer := NewJaccard()
	score, err := scorer.Score(context.Background(), "Hello, World!", "hello world")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected case/punctuation-insensitive match 1.0, got %v", score)
	}
}

func TestJaccardPartialOverlap(t *testing.T) {
	scorer := NewJaccard()
	// Sets: {a b c} and {b c d}: intersection 2, union 4.
	score, err := scorer.Score(context.Background(), "a b c", "b c d")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.5 {
		t.Errorf("Expected 0.5, got %v", score)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		a, b []float64
		want float64
	}{
		{[]float64{1, 0}, []float64{1, 0}, 1.0},
		{[]float64{1, 0}, []float64{0, 1}, 0.0},
		{[]float64{1, 0}, []float64{-1, 0}, -1.0},
		{[]float64{0, 0}, []float64{1, 1}, 0.0},
	}
	for _, tt := range tests {
		got, err := Cosine(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Cosine(%v, %v) failed: %v", tt.a, tt.b, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	if _, err := Cosine([]float64{1, 2}, []float64{1, 2, 3}); err == nil {
		t.Error("Expected error for mismatched dimensions")
	}
}

// stubProvider returns canned vectors keyed by text.
type stubProvider struct {
	vectors map[string][]float64
	err     error
}

func (p *stubProvider) Embed(_ context.Context, text string) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	vec, ok := p.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func TestEmbeddingScore(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float64{
		"a": {1, 0, 0},
		"b": {1, 0, 0},
		"c": {0, 1, 0},
	}}
	scorer := NewEmbedding(provider)

	score, err := scorer.Score(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected 1.0 for identical vectors, got %v", score)
	}

	score, err = scorer.Score(context.Background(), "a", "c")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.0 {
		t.Errorf("Expected 0.0 for orthogonal vectors, got %v", score)
	}
}

func TestEmbeddingNegativeCosineClamped(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float64{
		"x": {1, 0},
		"y": {-1, 0},
	}}
	scorer := NewEmbedding(provider)

	score, err := scorer.Score(context.Background(), "x", "y")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.0 {
		t.Errorf("Expected negative cosine clamped to 0, got %v", score)
	}
}

func TestEmbeddingProviderFailureIsDegradable(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("connection refused")}
	scorer := NewEmbedding(provider)

	_, err := scorer.Score(context.Background(), "a", "b")
	if err == nil {
		t.Fatal("Expected error from failing provider")
	}
	if !errors.HasCode(err, errors.ErrCodeScorerUnavailable) {
		t.Errorf("Expected SCORER_UNAVAILABLE, got %v", err)
	}
	if !errors.GetAppError(err).IsDegradable() {
		t.Error("Expected scorer failure to be degradable")
	}
}
