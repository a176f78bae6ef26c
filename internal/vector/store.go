package vector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	// ArrayFile holds the dense (N, D) float32 matrix.
	ArrayFile = "embeddings.f32"
	// KeysFile holds the JSON array of N image keys, row-aligned with ArrayFile.
	KeysFile = "keys.json"
)

// DiskStore is an append-only key -> vector store persisted as two co-located
// artifacts in dir. Row i of the array artifact belongs to keys[i].
// All methods are safe for concurrent use.
type DiskStore struct {
	dir        string
	dimensions int

	mu      sync.RWMutex
	keys    []string
	vectors [][]float32
	index   map[string]int
	loaded  bool

	saveMu sync.Mutex
}

var _ VectorStore = (*DiskStore)(nil)

// NewDiskStore creates an empty store for vectors of the given dimension whose
// artifacts live in dir. Nothing is read until Load.
func NewDiskStore(dir string, dimensions int) (*DiskStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	return &DiskStore{
		dir:        dir,
		dimensions: dimensions,
		index:      make(map[string]int),
	}, nil
}

// Paths returns the array and keys artifact paths.
func (s *DiskStore) Paths() (arrayPath, keysPath string) {
	return filepath.Join(s.dir, ArrayFile), filepath.Join(s.dir, KeysFile)
}

// Dir returns the artifact directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Dimensions returns the vector dimension.
func (s *DiskStore) Dimensions() int {
	return s.dimensions
}

// Loaded reports whether Load has run.
func (s *DiskStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Load replaces the in-memory contents with the persisted artifacts. When
// neither artifact exists the store starts empty and Load returns nil. Any
// inconsistency (one artifact missing, unreadable data, wrong dimension, key
// and row counts differing, duplicate keys) resets the store to empty and
// returns an error wrapping ErrCorrupt; the store stays usable either way.
func (s *DiskStore) Load() error {
	keys, vectors, err := s.readArtifacts()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	if err != nil {
		s.resetLocked()
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, dup := index[k]; dup {
			s.resetLocked()
			return fmt.Errorf("%w: duplicate key %q", ErrCorrupt, k)
		}
		index[k] = i
	}
	s.keys = keys
	s.vectors = vectors
	s.index = index
	return nil
}

func (s *DiskStore) readArtifacts() ([]string, [][]float32, error) {
	arrayPath, keysPath := s.Paths()
	arrayInfo, arrayErr := os.Stat(arrayPath)
	_, keysErr := os.Stat(keysPath)
	arrayMissing := errors.Is(arrayErr, fs.ErrNotExist)
	keysMissing := errors.Is(keysErr, fs.ErrNotExist)
	switch {
	case arrayMissing && keysMissing:
		return nil, nil, nil
	case arrayMissing:
		return nil, nil, fmt.Errorf("array artifact missing")
	case keysMissing:
		return nil, nil, fmt.Errorf("keys artifact missing")
	case arrayErr != nil:
		return nil, nil, arrayErr
	case keysErr != nil:
		return nil, nil, keysErr
	}

	af, err := os.Open(arrayPath)
	if err != nil {
		return nil, nil, err
	}
	defer af.Close()
	vectors, err := readArray(af, arrayInfo.Size(), s.dimensions)
	if err != nil {
		return nil, nil, err
	}

	kf, err := os.Open(keysPath)
	if err != nil {
		return nil, nil, err
	}
	defer kf.Close()
	keys, err := readKeys(kf)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) != len(vectors) {
		return nil, nil, fmt.Errorf("%d keys for %d rows", len(keys), len(vectors))
	}
	return keys, vectors, nil
}

// Save writes both artifacts. Each is written to a temp file in the store
// directory and renamed into place, array first, so a reader sees either a
// matching pair or a count mismatch that Load treats as corruption.
func (s *DiskStore) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	keys := s.keys[:len(s.keys):len(s.keys)]
	vectors := s.vectors[:len(s.vectors):len(s.vectors)]
	s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	arrayTmp, err := s.writeTemp("embeddings-*.tmp", func(f *os.File) error {
		return writeArray(f, s.dimensions, vectors)
	})
	if err != nil {
		return fmt.Errorf("write array: %w", err)
	}
	keysTmp, err := s.writeTemp("keys-*.tmp", func(f *os.File) error {
		return writeKeys(f, keys)
	})
	if err != nil {
		_ = os.Remove(arrayTmp)
		return fmt.Errorf("write keys: %w", err)
	}
	arrayPath, keysPath := s.Paths()
	if err := os.Rename(arrayTmp, arrayPath); err != nil {
		_ = os.Remove(arrayTmp)
		_ = os.Remove(keysTmp)
		return fmt.Errorf("rename array: %w", err)
	}
	if err := os.Rename(keysTmp, keysPath); err != nil {
		_ = os.Remove(keysTmp)
		return fmt.Errorf("rename keys: %w", err)
	}
	return nil
}

func (s *DiskStore) writeTemp(pattern string, write func(*os.File) error) (string, error) {
	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// Contains reports whether key has a vector.
func (s *DiskStore) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[key]
	return ok
}

// Get returns the vector for key. The slice is shared with the store and must
// not be modified.
func (s *DiskStore) Get(key string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.vectors[i], true
}

// Append adds vectors for keys in order. Keys already in the store, or repeated
// within the batch, are skipped. The whole batch is rejected if any vector has
// the wrong dimension. Returns the number of entries appended. Append does not
// persist; call Save.
func (s *DiskStore) Append(keys []string, vectors [][]float32) (int, error) {
	if len(keys) != len(vectors) {
		return 0, fmt.Errorf("keys and vectors length mismatch: %d != %d", len(keys), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dimensions {
			return 0, fmt.Errorf("key %q: %w: got %d, expected %d", keys[i], ErrDimensionMismatch, len(v), s.dimensions)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for i, k := range keys {
		if _, ok := s.index[k]; ok {
			continue
		}
		vec := make([]float32, s.dimensions)
		copy(vec, vectors[i])
		s.index[k] = len(s.keys)
		s.keys = append(s.keys, k)
		s.vectors = append(s.vectors, vec)
		added++
	}
	return added, nil
}

// Keys returns a copy of the keys in append order.
func (s *DiskStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keys...)
}

// Len returns the number of stored vectors.
func (s *DiskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Reset empties the store and deletes both artifacts. This is the only way
// entries are ever removed.
func (s *DiskStore) Reset() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.Lock()
	s.resetLocked()
	s.loaded = true
	s.mu.Unlock()

	arrayPath, keysPath := s.Paths()
	for _, p := range []string{keysPath, arrayPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func (s *DiskStore) resetLocked() {
	s.keys = nil
	s.vectors = nil
	s.index = make(map[string]int)
}

// Close is a no-op; the store holds no open files between calls.
func (s *DiskStore) Close() error {
	return nil
}
