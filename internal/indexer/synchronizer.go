// Package indexer keeps the embedding store in sync with the images callers ask about.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/ruiji/internal/embedding"
	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/internal/resolver"
	"github.com/hyperjump/ruiji/internal/vector"
	"github.com/hyperjump/ruiji/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultWorkers is the number of images embedded concurrently when not configured.
const DefaultWorkers = 4

// EventRecorder persists embedding outcomes for auditing.
type EventRecorder interface {
	RecordEvents(ctx context.Context, events []*models.EmbeddingEvent) error
}

// Synchronizer embeds the keys the store does not know yet and appends them.
// Embedding runs without holding the write lock; only append and persist are
// serialized.
type Synchronizer struct {
	store    vector.VectorStore
	embedder embedding.Embedder
	resolver resolver.Resolver
	recorder EventRecorder
	workers  int
	timeout  time.Duration
	logger   *zap.Logger

	loadOnce sync.Once
	writeMu  sync.Mutex
	flight   singleflight.Group
}

// SynchronizerOption configures a Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithLogger sets a logger for per-key failures and persistence errors.
func WithLogger(l *zap.Logger) SynchronizerOption {
	return func(s *Synchronizer) { s.logger = l }
}

// WithWorkers sets how many images are embedded concurrently.
func WithWorkers(n int) SynchronizerOption {
	return func(s *Synchronizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRecorder sets where embedding outcomes are recorded.
func WithRecorder(r EventRecorder) SynchronizerOption {
	return func(s *Synchronizer) { s.recorder = r }
}

// WithKeyTimeout bounds resolve plus embed for a single key. Zero means no limit.
func WithKeyTimeout(d time.Duration) SynchronizerOption {
	return func(s *Synchronizer) { s.timeout = d }
}

// NewSynchronizer creates a synchronizer over store. The store is loaded on the
// first Ensure.
func NewSynchronizer(store vector.VectorStore, embedder embedding.Embedder, res resolver.Resolver, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		embedder: embedder,
		resolver: res,
		workers:  DefaultWorkers,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Store returns the underlying vector store.
func (s *Synchronizer) Store() vector.VectorStore {
	return s.store
}

// Load reads the persisted store once. Corrupt artifacts are logged and the
// store starts empty.
func (s *Synchronizer) Load() {
	s.loadOnce.Do(func() {
		if err := s.store.Load(); err != nil {
			s.logger.Warn("embedding store reset", zap.Error(err))
			return
		}
		s.logger.Debug("embedding store loaded", zap.Int("images", s.store.Len()))
	})
}

// Missing returns the keys not yet in the store, in input order without duplicates.
func (s *Synchronizer) Missing(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	var missing []string
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if !s.store.Contains(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Ensure makes every key present in the store. Keys that cannot be resolved
// or embedded are stored as zero vectors; such failures are logged and
// reported, never returned. Keys still pending when ctx ends are not stored
// and ctx's error is returned alongside the partial report. Otherwise the
// returned error is non-nil only when the store rejects the batch.
func (s *Synchronizer) Ensure(ctx context.Context, keys []string) (*Report, error) {
	start := time.Now()
	s.Load()

	missing := s.Missing(keys)
	report := &Report{Requested: countDistinct(keys), Missing: len(missing)}
	if len(missing) == 0 {
		report.Took = time.Since(start)
		return report, nil
	}

	outcomes := s.embedAll(ctx, missing)
	report.Outcomes = outcomes
	done := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		switch {
		case o.Canceled:
			report.Canceled++
			continue
		case o.Embedded():
			report.Embedded++
		default:
			report.Failed++
			s.logger.Warn("embedding failed, storing zero vector",
				zap.String("image_key", o.Key), zap.Error(o.Err))
		}
		done = append(done, o)
	}

	appended, err := s.commit(done)
	report.Appended = appended
	if err != nil {
		report.Took = time.Since(start)
		return report, err
	}
	s.record(ctx, done)
	report.Took = time.Since(start)
	s.logger.Debug("embedding store synced",
		zap.Int("requested", report.Requested),
		zap.Int("missing", report.Missing),
		zap.Int("failed", report.Failed),
		zap.Int("canceled", report.Canceled),
		zap.Int("appended", report.Appended),
		zap.Duration("took", report.Took))
	if report.Canceled > 0 {
		return report, fmt.Errorf("%d keys not embedded: %w", report.Canceled, ctx.Err())
	}
	return report, nil
}

// embedAll embeds keys with a bounded worker pool. Outcomes keep input order.
func (s *Synchronizer) embedAll(ctx context.Context, keys []string) []Outcome {
	outcomes := make([]Outcome, len(keys))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, key := range keys {
		g.Go(func() error {
			outcomes[i] = s.embedOne(ctx, key)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// embedOne resolves and embeds key. Concurrent calls for the same key share
// one computation, which runs detached from any single caller's context and
// is bounded only by the key timeout. Each caller stops waiting when its own
// ctx ends.
func (s *Synchronizer) embedOne(ctx context.Context, key string) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Key: key, Err: err, Canceled: true}
	}
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return s.compute(context.WithoutCancel(ctx), key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Outcome{Key: key, Err: res.Err}
		}
		return Outcome{Key: key, Vector: res.Val.([]float32)}
	case <-ctx.Done():
		return Outcome{Key: key, Err: ctx.Err(), Canceled: true}
	}
}

func (s *Synchronizer) compute(ctx context.Context, key string) (vec []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			vec, err = nil, fmt.Errorf("embedder panic: %v", r)
		}
	}()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	data, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	vec, err = s.embedder.Embed(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if dim := s.store.Dimensions(); len(vec) != dim {
		return nil, fmt.Errorf("embed: got %d dimensions, want %d: %w", len(vec), dim, vector.ErrDimensionMismatch)
	}
	if utils.HasNonFinite(vec) {
		return nil, errors.New("embed: vector has non-finite components")
	}
	return vec, nil
}

// commit appends outcomes under the write lock and persists the store.
// Keys stored by a concurrent call in the meantime are skipped.
func (s *Synchronizer) commit(outcomes []Outcome) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dim := s.store.Dimensions()
	keys := make([]string, 0, len(outcomes))
	vecs := make([][]float32, 0, len(outcomes))
	for _, o := range outcomes {
		if s.store.Contains(o.Key) {
			continue
		}
		keys = append(keys, o.Key)
		vecs = append(vecs, o.StoredVector(dim))
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.store.Append(keys, vecs)
	if err != nil {
		return n, fmt.Errorf("append embeddings: %w", err)
	}
	if err := s.store.Save(); err != nil {
		s.logger.Error("failed to persist embedding store", zap.Error(err))
	}
	return n, nil
}

func (s *Synchronizer) record(ctx context.Context, outcomes []Outcome) {
	if s.recorder == nil {
		return
	}
	now := time.Now().UTC()
	dim := s.store.Dimensions()
	events := make([]*models.EmbeddingEvent, len(outcomes))
	for i, o := range outcomes {
		events[i] = o.Event(dim, now)
	}
	if err := s.recorder.RecordEvents(context.WithoutCancel(ctx), events); err != nil {
		s.logger.Warn("failed to record embedding events", zap.Error(err))
	}
}

// Reset empties the store and deletes its artifacts.
func (s *Synchronizer) Reset() error {
	s.Load()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.Reset(); err != nil {
		return fmt.Errorf("reset embedding store: %w", err)
	}
	s.logger.Info("embedding store reset")
	return nil
}

func countDistinct(keys []string) int {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	return len(seen)
}
