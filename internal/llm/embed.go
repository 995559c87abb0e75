package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// EmbedderConfig configures the embedding client. The endpoint speaks the
// OpenAI embeddings API, so a local Ollama server works with
// BaseURL "http://localhost:11434/v1" and model "nomic-embed-text".
type EmbedderConfig struct {
	// BaseURL is the OpenAI-compatible endpoint. Empty means api.openai.com.
	BaseURL string
	// APIKey authenticates the endpoint. Local servers accept any value.
	APIKey string
	// Model is the embedding model name.
	Model string
}

// Embedder produces vectors for free-text consensus bucketing.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewEmbedder creates an embedding client.
func NewEmbedder(cfg EmbedderConfig) *Embedder {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}
	conf := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}

	return &Embedder{
		client: openai.NewClientWithConfig(conf),
		model:  openai.EmbeddingModel(model),
	}
}

// Embed returns the embedding vector for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}
