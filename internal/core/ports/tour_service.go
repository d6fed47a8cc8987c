package ports

import (
	"context"

	"github.com/demotours/tour-builder/internal/core/domain"
)

// StepInput is a step as submitted by the editor. ID may be empty.
type StepInput struct {
	ID          string
	Title       string
	Description string
	Image       string
	Duration    int
	Annotations []any
}

// CreateTourInput carries the fields accepted on creation.
type CreateTourInput struct {
	OwnerID     string
	Title       string
	Description string
	Thumbnail   string
	Status      string
	IsPublic    bool
	Steps       []StepInput
}

// UpdateTourInput is a partial update. Nil fields are not touched; a non-nil
// Steps replaces the stored array (last writer wins).
type UpdateTourInput struct {
	OwnerID     string
	TourID      string
	Title       *string
	Description *string
	Thumbnail   *string
	Status      *string
	IsPublic    *bool
	Steps       *[]StepInput
}

// TourService defines the authoring use cases. All methods except
// GetPublicTour are scoped to the calling owner.
type TourService interface {
	ListTours(ctx context.Context, ownerID string) ([]*domain.Tour, error)
	GetTour(ctx context.Context, ownerID, tourID string) (*domain.Tour, error)
	CreateTour(ctx context.Context, in CreateTourInput) (*domain.Tour, error)
	UpdateTour(ctx context.Context, in UpdateTourInput) (*domain.Tour, error)
	DeleteTour(ctx context.Context, ownerID, tourID string) error
	GetPublicTour(ctx context.Context, tourID, viewerKey string) (*domain.Tour, error)
	Stats(ctx context.Context, ownerID string) (*domain.TourStats, error)
}

// ViewRecorder accepts public playback fetches for asynchronous counting.
type ViewRecorder interface {
	Record(event domain.ViewEvent)
}
