// Package similarity scores how close two texts are in meaning.
//
// Scorers are pluggable: the built-in Jaccard scorer needs no external
// services, while the Embedding scorer delegates to an injected vector
// provider. Scorer failure is always degradable; callers proceed without a
// semantic score rather than aborting the textual diff.
package similarity

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/dpshade/promptdiff/internal/embedding"
	"github.com/dpshade/promptdiff/internal/errors"
)

// Scorer produces a semantic similarity score in [0,1] for two texts.
type Scorer interface {
	Name() string
	Score(ctx context.Context, a, b string) (float64, error)
}

// Jaccard scores texts by lowercased word-set overlap. It requires no
// external services and is symmetric in its arguments.
type Jaccard struct{}

// NewJaccard creates the word-overlap scorer.
func NewJaccard() Jaccard {
	return Jaccard{}
}

// Name returns the scorer identifier.
func (Jaccard) Name() string {
	return "jaccard"
}

// Score computes |A∩B| / |A∪B| over the word sets of the two texts.
// Two empty texts score 1.0; exactly one empty text scores 0.0.
func (Jaccard) Score(_ context.Context, a, b string) (float64, error) {
	wordsA := tokenize(a)
	wordsB := tokenize(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0, nil
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0, nil
	}

	intersection := 0
	union := len(wordsB)
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		} else {
			union++
		}
	}

	return float64(intersection) / float64(union), nil
}

// tokenize splits text into a set of lowercased words, delimited by
// whitespace and punctuation.
func tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Embedding scores texts by cosine similarity of vectors from an injected
// provider. Provider failures surface as ScorerUnavailable, which callers
// treat as recoverable.
type Embedding struct {
	provider embedding.Provider
}

// NewEmbedding creates an embedding-backed scorer.
func NewEmbedding(provider embedding.Provider) *Embedding {
	return &Embedding{provider: provider}
}

// Name returns the scorer identifier.
func (e *Embedding) Name() string {
	return "embedding"
}

// Score embeds both texts and returns their cosine similarity clamped to
// [0,1]; a negative cosine clamps to 0.
func (e *Embedding) Score(ctx context.Context, a, b string) (float64, error) {
	vecA, err := e.provider.Embed(ctx, a)
	if err != nil {
		return 0, errors.ScorerUnavailableError(e.Name(), err)
	}
	vecB, err := e.provider.Embed(ctx, b)
	if err != nil {
		return 0, errors.ScorerUnavailableError(e.Name(), err)
	}

	cos, err := Cosine(vecA, vecB)
	if err != nil {
		return 0, errors.ScorerUnavailableError(e.Name(), err)
	}
	if cos < 0 {
		return 0, nil
	}
	if cos > 1 {
		return 1, nil
	}
	return cos, nil
}

// Cosine calculates the cosine similarity between two vectors. The result is
// in [-1,1]; a zero-magnitude vector yields 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.ValidationError(
			"embedding vectors must have the same length").
			WithContext("len_a", len(a)).
			WithContext("len_b", len(b))
	}

	var dot, magA, magB float64
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
