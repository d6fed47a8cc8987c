package domain

import "time"

const (
	RoleCreator = "creator"
	RoleViewer  = "viewer"
)

// User models an authenticated author or viewer.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
