package domain

import "time"

// TourStatus is the publication state of a tour.
type TourStatus string

const (
	StatusDraft     TourStatus = "draft"
	StatusPublished TourStatus = "published"
)

// DefaultStepDuration is the playback time of a step that does not set one, in milliseconds.
const DefaultStepDuration = 3000

// Valid reports whether s is a known status.
func (s TourStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Step is one unit of a tour. Steps live embedded in their tour; the position
// in Tour.Steps is the playback order.
type Step struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	// Duration is in milliseconds.
	Duration    int   `json:"duration"`
	Annotations []any `json:"annotations"`
}

// Tour is the aggregate root of the authoring domain.
type Tour struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Status      TourStatus `json:"status"`
	IsPublic    bool       `json:"isPublic"`
	Views       int64      `json:"views"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Steps       []Step     `json:"steps"`
}

// TourStats aggregates an owner's tours for the dashboard.
type TourStats struct {
	Total      int64 `json:"total"`
	Published  int64 `json:"published"`
	Drafts     int64 `json:"drafts"`
	TotalViews int64 `json:"totalViews"`
}

// ViewEvent records one public playback fetch.
type ViewEvent struct {
	TourID    string
	ViewerKey string
	At        time.Time
}
