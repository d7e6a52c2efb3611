// Package embedding provides text embedding providers for the semantic
// similarity scorer. The core never talks to a network service directly;
// it consumes vectors through the Provider capability only.
package embedding

import "context"

// Provider turns a text into a fixed-length numeric vector.
type Provider interface {
	// Embed returns the embedding vector for text. All vectors from one
	// provider have the same dimension.
	Embed(ctx context.Context, text string) ([]float64, error)
}
