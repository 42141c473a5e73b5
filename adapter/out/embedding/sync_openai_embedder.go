// Package embedding implements the OpenAI embedding adapter.
package embedding

import (
	"context"
	"time"

	"sync_server/core/port/out"
	"sync_server/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// =============================================================================
// OpenAI Embedder
// =============================================================================

// OpenAIEmbedder implements out.Embedder using the OpenAI embeddings API.
// Calls go through a circuit breaker so a degraded API fails fast instead
// of stalling every message in a batch.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	cb     *gobreaker.CircuitBreaker
}

// EmbedderConfig holds embedder configuration.
type EmbedderConfig struct {
	APIKey string
	Model  string
}

// NewOpenAIEmbedder creates a new OpenAI embedder.
func NewOpenAIEmbedder(cfg *EmbedderConfig) *OpenAIEmbedder {
	model := openai.AdaEmbeddingV2
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}

	cbSettings := gobreaker.Settings{
		Name:        "openai-embeddings",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s",
				name, from.String(), to.String())
		},
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Embed returns the embedding vector for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.cb.Execute(func() (interface{}, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: []string{text},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return []float32(nil), nil
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

// EmbedBatch returns embedding vectors for multiple texts in one call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := e.cb.Execute(func() (interface{}, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: texts,
		})
		if err != nil {
			return nil, err
		}
		embeddings := make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			embeddings[i] = data.Embedding
		}
		return embeddings, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}

// IsCircuitOpen returns true if the circuit breaker is open.
func (e *OpenAIEmbedder) IsCircuitOpen() bool {
	return e.cb.State() == gobreaker.StateOpen
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ out.Embedder = (*OpenAIEmbedder)(nil)
