// Package store persists sanitized submissions. Only sanitized text and
// replacement metadata are stored; originals never reach this package.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hannes/pellucid-sanitizer/pii"
)

var ErrNotFound = errors.New("submission not found")

// EntityRecord is the persisted part of a replacement
type EntityRecord struct {
	Type       string  `json:"entity_type"`
	Confidence float64 `json:"confidence"`
}

// Submission is a sanitized payload accepted by the ingestion endpoint
type Submission struct {
	ID            string         `json:"id"`
	SanitizedText string         `json:"sanitized_text"`
	PrivacyLevel  string         `json:"privacy_level"`
	PrivacyScore  float64        `json:"privacy_score"`
	Engine        string         `json:"engine"`
	Degraded      bool           `json:"degraded"`
	Entities      []EntityRecord `json:"entities"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewSubmission builds a submission from a result, dropping every original value
func NewSubmission(id, level string, result pii.SanitizationResult, degraded bool) Submission {
	entities := make([]EntityRecord, 0, len(result.Replacements))
	for _, r := range result.Replacements {
		entities = append(entities, EntityRecord{Type: string(r.EntityType), Confidence: r.Confidence})
	}
	return Submission{
		ID:            id,
		SanitizedText: result.SanitizedText,
		PrivacyLevel:  level,
		PrivacyScore:  result.PrivacyScore,
		Engine:        string(result.Engine),
		Degraded:      degraded,
		Entities:      entities,
		CreatedAt:     time.Now().UTC(),
	}
}

// Store defines the persistence operations used by the HTTP layer
type Store interface {
	// Save inserts a submission; IDs are unique
	Save(ctx context.Context, s Submission) error

	// Get returns ErrNotFound for unknown IDs
	Get(ctx context.Context, id string) (Submission, error)

	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes submissions created before now-olderThan
	DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)

	Close() error
}
