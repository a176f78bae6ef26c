package search

import (
	"context"

	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/internal/storage"
	"go.uber.org/zap"
)

// artifactPather is implemented by stores persisted as files.
type artifactPather interface {
	Paths() (arrayPath, keysPath string)
}

// Status reports store size, artifact locations and audit counts.
func (e *Engine) Status(ctx context.Context) (*models.StatusResponse, error) {
	e.syncer.Load()
	resp := &models.StatusResponse{
		Images:     e.store.Len(),
		Dimensions: e.store.Dimensions(),
	}
	if p, ok := e.store.(artifactPather); ok {
		resp.ArrayPath, resp.KeysPath = p.Paths()
		usage, err := storage.DiskUsageBytes(resp.ArrayPath, resp.KeysPath)
		if err != nil {
			e.logger.Warn("disk usage failed", zap.Error(err))
		}
		resp.DiskUsageBytes = usage
	}
	if e.events != nil {
		counts, err := e.events.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		resp.Events = make(map[string]int, len(counts))
		for status, n := range counts {
			resp.Events[string(status)] = int(n)
		}
	}
	return resp, nil
}

// Failures lists the most recent failed embedding events. It returns an
// empty list when no audit log is configured.
func (e *Engine) Failures(ctx context.Context, limit int) ([]*models.EmbeddingEvent, error) {
	if e.events == nil {
		return []*models.EmbeddingEvent{}, nil
	}
	events, err := e.events.ListFailures(ctx, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.EmbeddingEvent{}
	}
	return events, nil
}
