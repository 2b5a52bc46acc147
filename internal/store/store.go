package store

import (
	"context"

	"github.com/nhle/work-schedule/internal/model"
)

// Store defines the persistence interface for the schedule collection.
//
// The collection is written as a whole: SaveAll replaces every persisted
// schedule, project manager, and assignment inside one transaction. There
// is no conflict detection; the last writer wins.
type Store interface {
	// Load returns every schedule with its nested project managers and
	// assignments, ordered by date and then by the saved UI order.
	Load(ctx context.Context) ([]model.DailySchedule, error)

	// SaveAll atomically replaces the persisted collection.
	SaveAll(ctx context.Context, schedules []model.DailySchedule) error

	// Close releases the underlying connection pool.
	Close() error
}
