package model

import (
	"net/url"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleCoach Role = "coach"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the three known variants.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleCoach || r == RoleAdmin
}

type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Role        Role      `json:"role"`
	CoachID     int64     `json:"coach_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlaceholderAvatar builds a generated avatar URL for users who never
// uploaded one.
func PlaceholderAvatar(displayName string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(displayName)
}
