package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mkarasev/daytrip/vector"
)

// DefaultDimension matches text-embedding-3-small.
const DefaultDimension = 1536

// Embedder implements vector.Embedder on top of the OpenAI embeddings API.
type Embedder struct {
	client    openaisdk.Client
	model     openaisdk.EmbeddingModel
	dimension int
}

// New creates an Embedder. Empty model defaults to text-embedding-3-small,
// dimension <= 0 defaults to that model's dimension.
func New(apiKey, baseURL string, model openaisdk.EmbeddingModel, dimension int) *Embedder {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = openaisdk.EmbeddingModelTextEmbedding3Small
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{
		client:    openaisdk.NewClient(opts...),
		model:     model,
		dimension: dimension,
	}
}

// NewFromEnv builds an Embedder from OPENAI_API_KEY, OPENAI_BASE_URL and
// OPENAI_EMBEDDING_MODEL.
func NewFromEnv() (*Embedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	model := openaisdk.EmbeddingModel(os.Getenv("OPENAI_EMBEDDING_MODEL"))
	return New(apiKey, os.Getenv("OPENAI_BASE_URL"), model, 0), nil
}

// Dimension return number of embedding dimensions
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed converts text to a vector embedding
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch converts multiple texts to embeddings
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embedBatch(ctx, texts)
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openaisdk.EmbeddingNewParams{
		Model: e.model,
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for i, emb := range resp.Data {
		out[i] = vector.Normalize(convertVector(emb.Embedding, e.dimension))
	}
	return out, nil
}

func convertVector(input []float64, expected int) []float32 {
	vec := make([]float32, expected)
	for i := 0; i < len(input) && i < expected; i++ {
		vec[i] = float32(input[i])
	}
	return vec
}
