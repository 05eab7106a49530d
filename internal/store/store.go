// Package store keeps a per-user history of conversions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

var (
	ErrNotFound = errors.New("conversion not found")
	ErrNoUser   = errors.New("user id is required")
)

// Store persists conversions keyed by user.
type Store interface {
	// Save assigns an ID and timestamp when they are unset and returns the
	// stored record.
	Save(ctx context.Context, c models.Conversion) (models.Conversion, error)
	// List returns a user's conversions newest first, without CSV bodies.
	List(ctx context.Context, userID uuid.UUID) ([]models.Conversion, error)
	Get(ctx context.Context, userID, id uuid.UUID) (models.Conversion, error)
	// PurgeBefore deletes every conversion created before t.
	PurgeBefore(ctx context.Context, t time.Time) (int, error)
	Close() error
}
