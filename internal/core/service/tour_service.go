package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
	"github.com/demotours/tour-builder/internal/metrics"
)

// TourService implements the tour authoring use cases on top of a TourRepository.
type TourService struct {
	repo   ports.TourRepository
	views  ports.ViewRecorder
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func NewTourService(repo ports.TourRepository, views ports.ViewRecorder, logger zerolog.Logger) *TourService {
	return &TourService{
		repo:   repo,
		views:  views,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *TourService) ListTours(ctx context.Context, ownerID string) ([]*domain.Tour, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *TourService) GetTour(ctx context.Context, ownerID, tourID string) (*domain.Tour, error) {
	return s.repo.FindByID(ctx, tourID, ownerID)
}

// CreateTour validates the input, fills defaults and persists a new tour
// owned by in.OwnerID.
func (s *TourService) CreateTour(ctx context.Context, in ports.CreateTourInput) (*domain.Tour, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	if description == "" {
		return nil, domain.NewValidationError("description is required")
	}

	status := domain.StatusDraft
	if in.Status != "" {
		status = domain.TourStatus(in.Status)
		if !status.Valid() {
			return nil, domain.NewValidationError("status must be one of: draft published")
		}
	}

	now := s.now().UTC()
	tour := &domain.Tour{
		OwnerID:     in.OwnerID,
		Title:       title,
		Description: description,
		Thumbnail:   in.Thumbnail,
		Status:      status,
		IsPublic:    in.IsPublic,
		Views:       0,
		CreatedAt:   now,
		UpdatedAt:   now,
		Steps:       s.normalizeSteps(in.Steps),
	}

	created, err := s.repo.Create(ctx, tour)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_id", in.OwnerID).Msg("failed to create tour")
		return nil, err
	}

	metrics.ToursCreatedTotal.WithLabelValues(string(created.Status)).Inc()
	s.logger.Info().Str("tour_id", created.ID).Str("owner_id", in.OwnerID).Int("steps", len(created.Steps)).Msg("tour created")
	return created, nil
}

// UpdateTour merges the provided fields into the owner's tour. A provided
// steps array replaces the stored one entirely.
func (s *TourService) UpdateTour(ctx context.Context, in ports.UpdateTourInput) (*domain.Tour, error) {
	patch, err := s.buildPatch(in)
	if err != nil {
		// Someone else's tour is reported as missing, never as a field error.
		if _, findErr := s.repo.FindByID(ctx, in.TourID, in.OwnerID); findErr != nil {
			return nil, findErr
		}
		return nil, err
	}

	updated, err := s.repo.Update(ctx, in.TourID, in.OwnerID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("tour_id", updated.ID).Str("owner_id", in.OwnerID).Msg("tour updated")
	return updated, nil
}

func (s *TourService) buildPatch(in ports.UpdateTourInput) (ports.TourPatch, error) {
	patch := ports.TourPatch{
		Thumbnail: in.Thumbnail,
		IsPublic:  in.IsPublic,
		UpdatedAt: s.now().UTC(),
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return patch, domain.NewValidationError("title cannot be empty")
		}
		patch.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return patch, domain.NewValidationError("description cannot be empty")
		}
		patch.Description = &description
	}
	if in.Status != nil {
		status := domain.TourStatus(*in.Status)
		if !status.Valid() {
			return patch, domain.NewValidationError("status must be one of: draft published")
		}
		patch.Status = &status
	}
	if in.Steps != nil {
		patch.Steps = s.normalizeSteps(*in.Steps)
	}
	return patch, nil
}

func (s *TourService) DeleteTour(ctx context.Context, ownerID, tourID string) error {
	if err := s.repo.Delete(ctx, tourID, ownerID); err != nil {
		return err
	}
	s.logger.Info().Str("tour_id", tourID).Str("owner_id", ownerID).Msg("tour deleted")
	return nil
}

// GetPublicTour returns a tour flagged public, regardless of owner, and
// records a view. Private tours are reported as not found.
func (s *TourService) GetPublicTour(ctx context.Context, tourID, viewerKey string) (*domain.Tour, error) {
	tour, err := s.repo.FindPublic(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if s.views != nil {
		s.views.Record(domain.ViewEvent{TourID: tour.ID, ViewerKey: viewerKey, At: s.now().UTC()})
	}
	return tour, nil
}

func (s *TourService) Stats(ctx context.Context, ownerID string) (*domain.TourStats, error) {
	return s.repo.StatsByOwner(ctx, ownerID)
}

// normalizeSteps gives every step a unique id and a positive duration. Ids
// that are missing or repeated within the array are replaced.
func (s *TourService) normalizeSteps(in []ports.StepInput) []domain.Step {
	steps := make([]domain.Step, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, st := range in {
		id := strings.TrimSpace(st.ID)
		if _, dup := seen[id]; id == "" || dup {
			id = s.newID()
		}
		seen[id] = struct{}{}

		duration := st.Duration
		if duration <= 0 {
			duration = domain.DefaultStepDuration
		}
		annotations := st.Annotations
		if annotations == nil {
			annotations = []any{}
		}

		steps = append(steps, domain.Step{
			ID:          id,
			Title:       st.Title,
			Description: st.Description,
			Image:       st.Image,
			Duration:    duration,
			Annotations: annotations,
		})
	}
	return steps
}
