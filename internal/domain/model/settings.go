package model

import "time"

const SettingsRowID = 1

type AppSettings struct {
	ID             int       `json:"-"`
	RiddlesVisible bool      `json:"riddles_visible"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Countdown is display-only; it never flips the visibility gate.
type Countdown struct {
	StartsAt  time.Time `json:"starts_at"`
	Remaining string    `json:"remaining"` // hh:mm:ss
	Started   bool      `json:"started"`
}
