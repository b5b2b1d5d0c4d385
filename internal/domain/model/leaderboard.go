package model

import "time"

type LeaderboardEntry struct {
	Rank        int         `json:"rank"`
	UserID      string      `json:"user_id"`
	DisplayName DisplayName `json:"display_name"`
	IsTeam      bool        `json:"is_team"`
	Score       int         `json:"score"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
