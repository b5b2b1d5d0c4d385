package model

import (
	"time"
)

type Riddle struct {
	ID                int64     `json:"id"`
	Question          string    `json:"question"`
	Answer            string    `json:"answer"` // Admin only view
	Hint1             string    `json:"hint1"`
	Hint2             string    `json:"hint2"`
	OrderNumber       int       `json:"order_number"`
	RiddleType        *string   `json:"riddle_type,omitempty"`
	ReferenceImageURL *string   `json:"reference_image_url,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PlayerRiddle is what a player sees: no answer, and hints only once earned.
type PlayerRiddle struct {
	ID                int64   `json:"id"`
	Question          string  `json:"question"`
	OrderNumber       int     `json:"order_number"`
	RiddleType        *string `json:"riddle_type,omitempty"`
	ReferenceImageURL *string `json:"reference_image_url,omitempty"`
	Hint1             *string `json:"hint1,omitempty"`
	Hint2             *string `json:"hint2,omitempty"`
}

func (r *Riddle) ForPlayer(hints HintVisibility) *PlayerRiddle {
	pr := &PlayerRiddle{
		ID:                r.ID,
		Question:          r.Question,
		OrderNumber:       r.OrderNumber,
		RiddleType:        r.RiddleType,
		ReferenceImageURL: r.ReferenceImageURL,
	}
	if hints.Hint1 {
		h := r.Hint1
		pr.Hint1 = &h
	}
	if hints.Hint2 {
		h := r.Hint2
		pr.Hint2 = &h
	}
	return pr
}
