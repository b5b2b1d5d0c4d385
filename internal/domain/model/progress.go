package model

import "time"

type UserProgress struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	CurrentRiddleID int64      `json:"current_riddle_id"`
	Hint1Visible    bool       `json:"hint1_visible"`
	Hint2Visible    bool       `json:"hint2_visible"`
	StartTime       time.Time  `json:"start_time"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p *UserProgress) Complete() bool {
	return p.CompletedAt != nil
}

// HintDelays is the (D1, D2) pair; D1 must not exceed D2.
type HintDelays struct {
	Hint1 time.Duration
	Hint2 time.Duration
}

type HintVisibility struct {
	Hint1 bool `json:"hint1"`
	Hint2 bool `json:"hint2"`
}

// HintsVisible reports which hints have been earned at now for a riddle that
// became active at start. It depends on nothing but its arguments.
func HintsVisible(now, start time.Time, delays HintDelays) HintVisibility {
	elapsed := now.Sub(start)
	return HintVisibility{
		Hint1: elapsed >= delays.Hint1,
		Hint2: elapsed >= delays.Hint2,
	}
}

// Merge ORs in flags that were already persisted; an earned hint never hides again.
func (h HintVisibility) Merge(persisted HintVisibility) HintVisibility {
	return HintVisibility{
		Hint1: h.Hint1 || persisted.Hint1,
		Hint2: h.Hint2 || persisted.Hint2,
	}
}

type ProgressState string

const (
	ProgressHidden   ProgressState = "hidden"
	ProgressActive   ProgressState = "active"
	ProgressComplete ProgressState = "complete"
)

const CompletionMessage = "Congratulations! You have solved every riddle."

// CurrentRiddle is the result of a progression read.
type CurrentRiddle struct {
	State            ProgressState  `json:"state"`
	Riddle           *PlayerRiddle  `json:"riddle,omitempty"`
	Position         int            `json:"position,omitempty"`
	Total            int            `json:"total"`
	Hints            HintVisibility `json:"hints"`
	StartTime        *time.Time     `json:"start_time,omitempty"`
	Hint1AvailableAt *time.Time     `json:"hint1_available_at,omitempty"`
	Hint2AvailableAt *time.Time     `json:"hint2_available_at,omitempty"`
	Message          string         `json:"message,omitempty"`
}

type AdvanceOutcome string

const (
	OutcomeAdvanced AdvanceOutcome = "advanced"
	OutcomeComplete AdvanceOutcome = "complete"
)
