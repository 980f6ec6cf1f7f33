package models

import (
	"time"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// User is the persisted account row. CoachID is only set for plain users
// that have an assigned coach.
type User struct {
	ID           int64
	Email        string
	Username     string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	Role         model.Role
	CoachID      *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public converts the row into the wire shape, defaulting the avatar to a
// generated placeholder when none was uploaded.
func (u *User) Public() model.User {
	avatar := u.AvatarURL
	if avatar == "" {
		avatar = model.PlaceholderAvatar(u.DisplayName)
	}

	var coachID int64
	if u.CoachID != nil {
		coachID = *u.CoachID
	}

	return model.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   avatar,
		Role:        u.Role,
		CoachID:     coachID,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
