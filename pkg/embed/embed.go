// Package embed turns course text into unit length vectors for similarity
// search.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultModel      = "gemini-embedding-001"
	DefaultDimensions = 768
)

var (
	ErrEmptyKey   = errors.New("embedding api key is empty")
	ErrZeroVector = errors.New("embedding has zero length")
)

// Embedder produces a normalized embedding for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// LoadAPIKey reads a key file, failing if it is missing or blank.
func LoadAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyKey)
	}
	return key, nil
}

// Gemini calls the Gemini embedding endpoint.
type Gemini struct {
	client     *genai.Client
	model      string
	dimensions int32
}

func NewGemini(ctx context.Context, apiKey, model string, dimensions int) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrEmptyKey
	}
	if model == "" {
		model = DefaultModel
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, dimensions: int32(dimensions)}, nil
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(g.dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return Normalize(res.Embeddings[0].Values)
}

// Normalize scales v to unit L2 norm.
func Normalize[T float32 | float64](v []T) ([]float64, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, ErrZeroVector
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / norm
	}
	return out, nil
}

// Cosine is the cosine similarity of two vectors of equal length. It returns
// 0 when either vector has no magnitude.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
