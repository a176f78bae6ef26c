package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"math"

	"github.com/hyperjump/ruiji/pkg/utils"
)

// ErrEmptyImage is returned for zero-length input.
var ErrEmptyImage = errors.New("embedding: empty image")

// MockEmbedder is a deterministic embedder for tests and for running without a
// model. It derives a unit vector from the image bytes, so identical bytes
// always get the same embedding. It does not decode the image.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the content hash.
func (e *MockEmbedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	h := fnv.New64a()
	_, _ = h.Write(image)
	seed := float64(h.Sum64()%100003) + 1
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(seed*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
