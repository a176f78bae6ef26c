// Package resolver loads the encoded bytes of an image given its canonical key.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when no image exists for a key.
var ErrNotFound = errors.New("resolver: image not found")

// MaxImageBytes bounds how much of a single image is read into memory.
const MaxImageBytes int64 = 64 << 20

// Resolver maps an image key to its encoded bytes.
type Resolver interface {
	Resolve(ctx context.Context, key string) ([]byte, error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, key string) ([]byte, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

// readLimited reads r fully, failing when it exceeds MaxImageBytes.
func readLimited(r io.Reader, key string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if int64(len(data)) > MaxImageBytes {
		return nil, fmt.Errorf("read %s: image larger than %d bytes", key, MaxImageBytes)
	}
	return data, nil
}
