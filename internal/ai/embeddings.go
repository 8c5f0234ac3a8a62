package ai

import (
	"context"
	"errors"
	"fmt"

	"caregiver-compass/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmbeddingUnavailable is returned when the embedding backend cannot
// produce a vector. Callers degrade to an answer without retrieved context.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// Embedder turns text into a fixed-dimension vector. The same backend must
// be used at ingestion time and at query time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// NewEmbedder selects the embedding backend from configuration.
// Default provider is Google Generative AI (text-embedding-004).
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		return NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.VectorDim)
	case "local":
		return NewLocalEmbedder(cfg.VectorDim), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}

// GeminiEmbedder produces embeddings via the Google Generative AI SDK.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int
}

func NewGeminiEmbedder(apiKey, model string, dim int) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{client: client, model: model, dim: dim}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	model := g.client.EmbeddingModel(g.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbeddingUnavailable)
	}

	return resp.Embedding.Values, nil
}

func (g *GeminiEmbedder) Dimension() int {
	return g.dim
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
