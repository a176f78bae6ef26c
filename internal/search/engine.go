// Package search provides the retrieval engine: ensure embeddings, then rank.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/ruiji/internal/config"
	"github.com/hyperjump/ruiji/internal/imagekey"
	"github.com/hyperjump/ruiji/internal/indexer"
	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/internal/ranking"
	"github.com/hyperjump/ruiji/internal/storage"
	"github.com/hyperjump/ruiji/internal/vector"
	"go.uber.org/zap"
)

var (
	// ErrEmptyQuery is returned when the query image key is blank.
	ErrEmptyQuery = errors.New("search: empty query key")
	// ErrNoImageRoot is returned by Pool when no image root is configured.
	ErrNoImageRoot = errors.New("search: no image root configured")
	// ErrInvalidQuery wraps request validation failures.
	ErrInvalidQuery = errors.New("search: invalid query")
)

// Engine answers similarity queries over the embedding store.
type Engine struct {
	syncer     *indexer.Synchronizer
	store      vector.VectorStore
	events     storage.EventStore
	config     *config.RetrievalConfig
	root       string
	extensions []string
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for query and warm-up events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithImageRoot sets the directory that relative keys resolve against and
// that Pool scans, with the image extensions to include.
func WithImageRoot(root string, extensions []string) EngineOption {
	return func(e *Engine) {
		e.root = root
		e.extensions = extensions
	}
}

// WithEventStore sets the audit log used by Status and Failures.
func WithEventStore(es storage.EventStore) EngineOption {
	return func(e *Engine) { e.events = es }
}

// NewEngine creates an engine over the synchronizer's store. cfg may be nil.
func NewEngine(syncer *indexer.Synchronizer, cfg *config.RetrievalConfig, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = &config.RetrievalConfig{}
	}
	e := &Engine{
		syncer: syncer,
		store:  syncer.Store(),
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Root returns the configured image root.
func (e *Engine) Root() string {
	return e.root
}

// TopKSimilar returns the k candidates most similar to queryKey, with weights
// that sum to 1 when any candidate scores above zero. The query never appears
// in the result. Duplicate and blank candidate keys are dropped; candidates
// that cannot be embedded rank as zero vectors. k <= 0 or no candidates yields
// an empty result.
func (e *Engine) TopKSimilar(ctx context.Context, queryKey string, candidateKeys []string, k int) ([]models.Result, error) {
	query, err := imagekey.Canonicalize(e.root, queryKey)
	if err != nil {
		if errors.Is(err, imagekey.ErrEmptyKey) {
			return nil, ErrEmptyQuery
		}
		return nil, fmt.Errorf("query key: %w", err)
	}
	candidates, invalid := imagekey.Unique(e.root, candidateKeys)
	if len(invalid) > 0 {
		e.logger.Debug("dropped invalid candidate keys", zap.Int("count", len(invalid)))
	}
	if k <= 0 || len(candidates) == 0 {
		return []models.Result{}, nil
	}

	keys := make([]string, 0, len(candidates)+1)
	keys = append(keys, query)
	keys = append(keys, candidates...)
	if _, err := e.syncer.Ensure(ctx, keys); err != nil {
		return nil, err
	}

	queryVec, ok := e.store.Get(query)
	if !ok {
		queryVec = make([]float32, e.store.Dimensions())
	}
	pool := make([]ranking.Candidate, 0, len(candidates))
	for _, key := range candidates {
		v, ok := e.store.Get(key)
		if !ok {
			continue
		}
		pool = append(pool, ranking.Candidate{Key: key, Vector: v})
	}
	return ranking.Rank(queryVec, pool, query, k), nil
}

// Similar validates q against the retrieval limits and runs TopKSimilar,
// using the whole image pool as candidates when q.Pool is set.
func (e *Engine) Similar(ctx context.Context, q *models.SimilarQuery) (*models.SimilarResponse, error) {
	start := time.Now()
	if q.Query == "" {
		return nil, ErrEmptyQuery
	}
	candidates := q.Candidates
	if q.Pool {
		pool, err := e.Pool()
		if err != nil {
			return nil, err
		}
		candidates = pool
	}
	maxCandidates := e.config.MaxCandidates
	if q.Pool {
		maxCandidates = 0
	}
	k, err := q.Validate(e.config.DefaultK, e.config.MaxK, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	results, err := e.TopKSimilar(ctx, q.Query, candidates, k)
	if err != nil {
		return nil, err
	}
	took := time.Since(start)
	e.logger.Debug("similarity query",
		zap.String("query", q.Query),
		zap.Int("candidates", len(candidates)),
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Duration("took", took))
	return &models.SimilarResponse{
		Query:      q.Query,
		Results:    results,
		Candidates: len(candidates),
		QueryTime:  took.Milliseconds(),
	}, nil
}

// Warm embeds keys that are not in the store yet, without ranking.
func (e *Engine) Warm(ctx context.Context, keys []string) (*indexer.Report, error) {
	canonical, invalid := imagekey.Unique(e.root, keys)
	if len(invalid) > 0 {
		e.logger.Debug("dropped invalid warm keys", zap.Int("count", len(invalid)))
	}
	if len(canonical) == 0 {
		return &indexer.Report{}, nil
	}
	return e.syncer.Ensure(ctx, canonical)
}

// WarmDirectory embeds every image under dir.
func (e *Engine) WarmDirectory(ctx context.Context, dir string) (*indexer.Report, error) {
	keys, err := indexer.ScanImages(dir, e.extensions)
	if err != nil {
		return nil, err
	}
	return e.Warm(ctx, keys)
}

// Pool returns the sorted keys of all images under the image root.
func (e *Engine) Pool() ([]string, error) {
	if e.root == "" {
		return nil, ErrNoImageRoot
	}
	return indexer.ScanImages(e.root, e.extensions)
}

// Rebuild deletes the embedding artifacts and empties the store. With rewarm,
// the image pool is embedded again afterwards.
func (e *Engine) Rebuild(ctx context.Context, rewarm bool) (*indexer.Report, error) {
	if err := e.syncer.Reset(); err != nil {
		return nil, err
	}
	if !rewarm {
		return &indexer.Report{}, nil
	}
	keys, err := e.Pool()
	if err != nil {
		return nil, err
	}
	return e.Warm(ctx, keys)
}
