package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

type SettingsService struct {
	repo    repository.SettingsRepository
	startAt *time.Time
	now     func() time.Time
}

func NewSettingsService(repo repository.SettingsRepository, gameStartAt *time.Time) *SettingsService {
	return &SettingsService{repo: repo, startAt: gameStartAt, now: time.Now}
}

type SetVisibilityRequest struct {
	RiddlesVisible *bool `json:"riddles_visible" validate:"required"`
}

type SettingsResponse struct {
	RiddlesVisible bool             `json:"riddles_visible"`
	Countdown      *model.Countdown `json:"countdown,omitempty"`
}

// RiddlesVisible reads the gate straight from storage on every call.
func (s *SettingsService) RiddlesVisible(ctx context.Context) (bool, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("read visibility: %w", err)
	}
	return settings.RiddlesVisible, nil
}

func (s *SettingsService) SetRiddlesVisible(ctx context.Context, req SetVisibilityRequest) (*model.AppSettings, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	settings, err := s.repo.SetRiddlesVisible(ctx, *req.RiddlesVisible)
	if err != nil {
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	logrus.WithField("riddles_visible", settings.RiddlesVisible).Info("Riddle visibility changed")
	return settings, nil
}

func (s *SettingsService) Snapshot(ctx context.Context) (*SettingsResponse, error) {
	visible, err := s.RiddlesVisible(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsResponse{RiddlesVisible: visible, Countdown: s.Countdown(s.now())}, nil
}

// Countdown is nil when no start time is configured.
func (s *SettingsService) Countdown(now time.Time) *model.Countdown {
	if s.startAt == nil {
		return nil
	}
	remaining := s.startAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return &model.Countdown{
		StartsAt:  *s.startAt,
		Remaining: formatHMS(remaining),
		Started:   remaining == 0,
	}
}

// formatHMS renders d as hh:mm:ss; hours are not capped at 24.
func formatHMS(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
