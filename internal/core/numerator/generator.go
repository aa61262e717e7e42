// Package numerator provides the contract for human-readable sequential codes
// (stock movement codes such as MVT-2026-00042).
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential codes.
type Generator interface {
	// GetNextNumber generates the next code.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., MVT-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves the sequence (used when importing existing codes).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
