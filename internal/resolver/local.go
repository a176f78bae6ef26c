package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileResolver reads images from the local filesystem. Keys are absolute
// slash-separated paths.
type FileResolver struct{}

// NewFileResolver returns a resolver for local files.
func NewFileResolver() *FileResolver {
	return &FileResolver{}
}

// Resolve reads the file named by key.
func (r *FileResolver) Resolve(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := filepath.FromSlash(key)
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", key)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()
	return readLimited(f, key)
}

var _ Resolver = (*FileResolver)(nil)
