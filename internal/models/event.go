package models

import "time"

// EventStatus is the outcome of embedding one image.
type EventStatus string

const (
	StatusEmbedded EventStatus = "embedded"
	StatusFailed   EventStatus = "failed"
)

// EmbeddingEvent records one embedding attempt for an image key.
type EmbeddingEvent struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	Status     EventStatus `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	Dimensions int         `json:"dimensions"`
	CreatedAt  time.Time   `json:"created_at"`
}
