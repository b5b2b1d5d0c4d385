package model

import (
	"time"
)

type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	IsTeam           bool       `json:"is_team"`
	HashedPassword   string     `json:"-"` // Not exposed
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (u *User) EmailConfirmed() bool {
	return u.EmailConfirmedAt != nil
}

// Team is 1:1 with a team-flagged user.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the resolved caller of a request.
type Identity struct {
	User        *User       `json:"user"`
	DisplayName DisplayName `json:"display_name"`
	IsAdmin     bool        `json:"is_admin"`
}

func (i *Identity) UserID() string {
	if i == nil || i.User == nil {
		return ""
	}
	return i.User.ID
}
