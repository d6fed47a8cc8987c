package handler

import (
	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
)

func toStepInputs(in []stepRequest) []ports.StepInput {
	out := make([]ports.StepInput, 0, len(in))
	for _, s := range in {
		var image string
		if s.Image != nil {
			image = *s.Image
		}
		out = append(out, ports.StepInput{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Image:       image,
			Duration:    s.Duration,
			Annotations: s.Annotations,
		})
	}
	return out
}

func toCreateInput(ownerID string, req createTourRequest) ports.CreateTourInput {
	return ports.CreateTourInput{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		Status:      req.Status,
		IsPublic:    req.IsPublic,
		Steps:       toStepInputs(req.Steps),
	}
}

func toUpdateInput(ownerID, tourID string, req updateTourRequest) ports.UpdateTourInput {
	in := ports.UpdateTourInput{
		OwnerID:     ownerID,
		TourID:      tourID,
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		Status:      req.Status,
		IsPublic:    req.IsPublic,
	}
	if req.Steps != nil {
		steps := toStepInputs(*req.Steps)
		in.Steps = &steps
	}
	return in
}

func toTourResponse(t *domain.Tour) tourResponse {
	steps := make([]stepResponse, 0, len(t.Steps))
	for _, s := range t.Steps {
		resp := stepResponse{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Duration:    s.Duration,
			Annotations: s.Annotations,
		}
		if s.Image != "" {
			image := s.Image
			resp.Image = &image
		}
		if resp.Annotations == nil {
			resp.Annotations = []any{}
		}
		steps = append(steps, resp)
	}
	return tourResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Thumbnail:   t.Thumbnail,
		Status:      string(t.Status),
		IsPublic:    t.IsPublic,
		Views:       t.Views,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Steps:       steps,
	}
}

func toTourResponses(tours []*domain.Tour) []tourResponse {
	out := make([]tourResponse, 0, len(tours))
	for _, t := range tours {
		out = append(out, toTourResponse(t))
	}
	return out
}

func toStatsResponse(s *domain.TourStats) statsResponse {
	return statsResponse{
		Total:      s.Total,
		Published:  s.Published,
		Drafts:     s.Drafts,
		TotalViews: s.TotalViews,
	}
}
