package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small
	defaultMaxRetries     = 3
	defaultTimeout        = 30 * time.Second
)

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// OpenAIProvider embeds text via the OpenAI embeddings API.
type OpenAIProvider struct {
	client  openai.Client
	model   openai.EmbeddingModel
	retries uint
}

// NewOpenAIProvider creates an OpenAI-backed provider. The zero values of
// cfg fall back to text-embedding-3-small with modest retry and timeout
// settings.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = defaultEmbeddingModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   model,
		retries: uint(cfg.MaxRetries),
	}
}

// Embed returns the embedding vector for text, retrying transient API
// failures with backoff.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	var vector []float64

	err := retry.Do(
		func() error {
			resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
				Input: openai.EmbeddingNewParamsInputUnion{
					OfArrayOfStrings: []string{text},
				},
				Model: p.model,
			})
			if err != nil {
				return err
			}
			if len(resp.Data) == 0 {
				return fmt.Errorf("embedding response contained no data")
			}
			vector = resp.Data[0].Embedding
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.retries),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}

	return vector, nil
}
