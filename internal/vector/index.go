// Package vector provides the persisted image embedding store and similarity helpers.
package vector

import "errors"

var (
	// ErrCorrupt is returned by Load when the on-disk artifacts were unusable
	// and the store was reset to empty.
	ErrCorrupt = errors.New("vector: corrupt artifacts")
	// ErrDimensionMismatch is returned when a vector does not have the store dimension.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
)

// VectorStore is an append-only mapping from image key to embedding vector.
// Vectors returned by Get must be treated as read-only.
type VectorStore interface {
	Load() error
	Save() error
	Contains(key string) bool
	Get(key string) ([]float32, bool)
	Append(keys []string, vectors [][]float32) (int, error)
	Keys() []string
	Len() int
	Dimensions() int
	Reset() error
	Close() error
}
