// Package storage persists the embedding audit log and reports disk usage of
// the embedding artifacts.
package storage

import (
	"context"

	"github.com/hyperjump/ruiji/internal/models"
)

// EventStore records one event per embedding attempt so failed images can be
// listed and retried after a rebuild.
type EventStore interface {
	RecordEvents(ctx context.Context, events []*models.EmbeddingEvent) error
	ListEvents(ctx context.Context, status models.EventStatus, offset, limit int) ([]*models.EmbeddingEvent, error)
	ListFailures(ctx context.Context, limit int) ([]*models.EmbeddingEvent, error)
	LatestEvent(ctx context.Context, key string) (*models.EmbeddingEvent, error)
	CountByStatus(ctx context.Context) (map[models.EventStatus]int64, error)
	Close() error
}
