package ports

import (
	"context"
	"time"

	"github.com/demotours/tour-builder/internal/core/domain"
)

// TourPatch carries the fields of a partial update. Nil means "leave as is".
// A non-nil Steps replaces the whole stored array.
type TourPatch struct {
	Title       *string
	Description *string
	Thumbnail   *string
	Status      *domain.TourStatus
	IsPublic    *bool
	Steps       []domain.Step
	UpdatedAt   time.Time
}

// TourRepository defines persistence operations for tours. Every owner-scoped
// method filters on ownerID; a tour owned by someone else is reported as
// domain.ErrTourNotFound.
type TourRepository interface {
	Create(ctx context.Context, t *domain.Tour) (*domain.Tour, error)
	FindByID(ctx context.Context, id, ownerID string) (*domain.Tour, error)
	// FindPublic returns the tour only when it is flagged public.
	FindPublic(ctx context.Context, id string) (*domain.Tour, error)
	// ListByOwner returns the owner's tours, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Tour, error)
	Update(ctx context.Context, id, ownerID string, patch TourPatch) (*domain.Tour, error)
	Delete(ctx context.Context, id, ownerID string) error
	IncrementViews(ctx context.Context, id string, n int64) error
	StatsByOwner(ctx context.Context, ownerID string) (*domain.TourStats, error)
}
