// Package embedding turns part descriptions into unit-length vectors for
// cosine-distance search against the catalog.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
)

type Config struct {
	Model      string `envconfig:"MODEL" split_words:"true" default:"text-embedding-3-small"`
	Dimensions int    `envconfig:"DIMENSIONS" split_words:"true" default:"384"`
}

// OpenAIEmbedder implements contract.Embedder over the embeddings endpoint.
type OpenAIEmbedder struct {
	client *openaisdk.Client
	cfg    Config
}

var _ contractx.Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(client *openaisdk.Client, cfg Config) (*OpenAIEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil embeddings client", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: embedding model is required", contractx.ErrValidation)
	}
	return &OpenAIEmbedder{client: client, cfg: cfg}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty embedding input", contractx.ErrValidation)
	}

	params := openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.cfg.Model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: openaisdk.String(text),
		},
	}
	if e.cfg.Dimensions > 0 {
		params.Dimensions = openaisdk.Int(int64(e.cfg.Dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: embed: empty vector", contractx.ErrModelInvoke)
	}

	values := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		values[i] = float32(v)
	}
	// Cosine distance assumes unit-length vectors.
	return normalize(values), nil
}

func normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
