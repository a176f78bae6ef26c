// Package imagekey turns image paths into canonical keys for the embedding store.
package imagekey

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrEmptyKey is returned for blank image paths.
var ErrEmptyKey = errors.New("imagekey: empty key")

// Canonicalize returns the canonical key for p: an absolute, cleaned path
// with forward slashes. Relative paths are resolved against root, or against
// the working directory when root is empty. Two inputs naming the same file
// ("a/./b.png", "a/b.png", "a\\b.png" on Windows) yield the same key.
// Symlinks are not resolved, so keys stay stable for files that are missing
// or live in object storage.
func Canonicalize(root, p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrEmptyKey
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		base := root
		if base == "" {
			base = "."
		}
		p = filepath.Join(base, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Clean(abs)), nil
}

// Relative returns key relative to root in slash form, and false when key is
// not under root.
func Relative(root, key string) (string, bool) {
	if root == "" {
		return "", false
	}
	r, err := Canonicalize("", root)
	if err != nil {
		return "", false
	}
	if key == r {
		return "", false
	}
	prefix := strings.TrimSuffix(r, "/") + "/"
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	rel := path.Clean(strings.TrimPrefix(key, prefix))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Unique canonicalizes paths, keeping the first occurrence of each key in input
// order. Paths that cannot be canonicalized are skipped and returned separately.
func Unique(root string, paths []string) (keys []string, invalid []string) {
	seen := make(map[string]struct{}, len(paths))
	keys = make([]string, 0, len(paths))
	for _, p := range paths {
		k, err := Canonicalize(root, p)
		if err != nil {
			invalid = append(invalid, p)
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, invalid
}
