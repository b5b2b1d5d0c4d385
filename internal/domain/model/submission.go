package model

import "time"

type Submission struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RiddleID    int64     `json:"riddle_id"`
	Answer      string    `json:"answer"`
	ImagePath   *string   `json:"image_path,omitempty"` // storage path, never a URL
	IsApproved  *bool     `json:"is_approved"`          // nil = pending
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Submission) Pending() bool {
	return s.IsApproved == nil
}

// PendingSubmission is a moderation queue entry.
type PendingSubmission struct {
	Submission
	DisplayName    DisplayName `json:"display_name"`
	RiddleQuestion string      `json:"riddle_question"`
	ImageURL       *string     `json:"image_url,omitempty"`
}

type SubmissionPage struct {
	Items    []PendingSubmission `json:"items"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	Total    int                 `json:"total"`
}
