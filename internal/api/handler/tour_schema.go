package handler

import "time"

type stepRequest struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	Duration    int     `json:"duration"`
	Annotations []any   `json:"annotations"`
}

type createTourRequest struct {
	Title       string        `json:"title"       validate:"required,max=200"`
	Description string        `json:"description" validate:"required"`
	Thumbnail   string        `json:"thumbnail"`
	Status      string        `json:"status"      validate:"omitempty,oneof=draft published"`
	IsPublic    bool          `json:"isPublic"`
	Steps       []stepRequest `json:"steps"`
}

// updateTourRequest is a partial tour. Absent fields are left untouched;
// a present steps array replaces the stored one.
type updateTourRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Thumbnail   *string        `json:"thumbnail"`
	Status      *string        `json:"status"`
	IsPublic    *bool          `json:"isPublic"`
	Steps       *[]stepRequest `json:"steps"`
}

type stepResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	Duration    int     `json:"duration"`
	Annotations []any   `json:"annotations"`
}

type tourResponse struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Thumbnail   string         `json:"thumbnail"`
	Status      string         `json:"status"`
	IsPublic    bool           `json:"isPublic"`
	Views       int64          `json:"views"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Steps       []stepResponse `json:"steps"`
}

type statsResponse struct {
	Total      int64 `json:"total"`
	Published  int64 `json:"published"`
	Drafts     int64 `json:"drafts"`
	TotalViews int64 `json:"totalViews"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

type uploadResponse struct {
	URL string `json:"url"`
}
