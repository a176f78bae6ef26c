// Package embedding turns raw image bytes into fixed-length, L2-normalized vectors.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Embedder produces vector embeddings for encoded images (PNG, JPEG, ...).
// Implementations must be safe for concurrent use and return vectors of
// exactly Dimensions() elements.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
	Dimensions() int
	Close() error
}

// Digest returns the hex SHA-256 of image, used as the content cache key.
func Digest(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
