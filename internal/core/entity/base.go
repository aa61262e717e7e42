package entity

import (
	"context"
	"time"

	"stockflow/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Identifiable is the minimal contract shared by persisted aggregates.
type Identifiable interface {
	GetID() id.ID
	GetVersion() int
}

// BaseEntity contains common fields for all persisted aggregates.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *BaseEntity) GetID() id.ID { return b.ID }

func (b *BaseEntity) GetVersion() int { return b.Version }

// Touch updates the UpdatedAt timestamp and increments version.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}

// SetVersion updates the version number (used by repository after sync).
func (b *BaseEntity) SetVersion(v int) {
	b.Version = v
}

// Synced records the version and update time the row now has in storage.
func (b *BaseEntity) Synced(version int, updatedAt time.Time) {
	b.Version = version
	b.UpdatedAt = updatedAt
}
