package indexer

import (
	"time"

	"github.com/hyperjump/ruiji/internal/models"
)

// Outcome is the result of embedding one missing key: either a vector or the
// reason it could not be produced.
type Outcome struct {
	Key    string
	Vector []float32
	Err    error
	// Canceled is set when the caller stopped waiting before the key was
	// embedded. Such keys are left out of the store so a later call retries them.
	Canceled bool
}

// Embedded reports whether the key produced a usable vector.
func (o Outcome) Embedded() bool {
	return o.Err == nil && o.Vector != nil
}

// StoredVector returns the vector to persist for the key: the embedding, or a
// zero vector of length dim for a failed key.
func (o Outcome) StoredVector(dim int) []float32 {
	if o.Embedded() {
		return o.Vector
	}
	return make([]float32, dim)
}

// Event converts the outcome to an audit log entry.
func (o Outcome) Event(dim int, at time.Time) *models.EmbeddingEvent {
	ev := &models.EmbeddingEvent{
		Key:        o.Key,
		Status:     models.StatusEmbedded,
		Dimensions: dim,
		CreatedAt:  at,
	}
	if !o.Embedded() {
		ev.Status = models.StatusFailed
		if o.Err != nil {
			ev.Reason = o.Err.Error()
		}
	}
	return ev
}

// Report summarizes one Ensure call.
type Report struct {
	// Requested is the number of distinct keys asked for.
	Requested int
	// Missing is the number of keys that were not in the store.
	Missing  int
	Embedded int
	Failed   int
	// Canceled is the number of keys abandoned because the caller's context
	// ended first.
	Canceled int
	// Appended is the number of keys added to the store by this call. It can
	// be lower than Missing when a concurrent call stored a key first.
	Appended int
	Outcomes []Outcome
	Took     time.Duration
}
