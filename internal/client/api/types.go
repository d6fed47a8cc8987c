package api

import "time"

// Step is one slide of a tour as exchanged with the server. Image is nil when
// the step has no media.
type Step struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	Duration    int     `json:"duration"`
	Annotations []any   `json:"annotations"`
}

type Tour struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Status      string    `json:"status"`
	IsPublic    bool      `json:"isPublic"`
	Views       int64     `json:"views"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Steps       []Step    `json:"steps"`
}

// TourInput is the body of create and update calls. On update every field
// present replaces the stored value.
type TourInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Status      string `json:"status,omitempty"`
	IsPublic    *bool  `json:"isPublic,omitempty"`
	Steps       []Step `json:"steps"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	Msg   string `json:"msg,omitempty"`
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type Stats struct {
	Total      int64 `json:"total"`
	Published  int64 `json:"published"`
	Drafts     int64 `json:"drafts"`
	TotalViews int64 `json:"totalViews"`
}
