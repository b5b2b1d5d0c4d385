package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const hiddenMessage = "Riddles are not available yet. Check back soon!"

// ProgressionService owns the per-user pointer into the riddle sequence.
// UserProgress only changes through lazy creation, hint persistence and Advance.
type ProgressionService struct {
	riddleRepo   repository.RiddleRepository
	progressRepo repository.ProgressRepository
	gate         VisibilityGate
	delays       model.HintDelays
	now          func() time.Time
}

func NewProgressionService(
	riddleRepo repository.RiddleRepository,
	progressRepo repository.ProgressRepository,
	gate VisibilityGate,
	delays model.HintDelays,
) *ProgressionService {
	return &ProgressionService{
		riddleRepo:   riddleRepo,
		progressRepo: progressRepo,
		gate:         gate,
		delays:       delays,
		now:          time.Now,
	}
}

type AdvanceResult struct {
	Outcome      model.AdvanceOutcome `json:"outcome"`
	NextRiddleID *int64               `json:"next_riddle_id,omitempty"`
}

// Current returns the caller's riddle, or a hidden/complete state.
func (s *ProgressionService) Current(ctx context.Context, identity *model.Identity) (*model.CurrentRiddle, error) {
	if identity == nil || identity.User == nil {
		return nil, common.ErrUnauthorized
	}
	open, err := s.gateOpen(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !open {
		return &model.CurrentRiddle{State: model.ProgressHidden, Message: hiddenMessage}, nil
	}

	progress, riddle, err := s.position(ctx, identity.UserID())
	if err != nil {
		return nil, err
	}
	if riddle == nil {
		_, total, err := s.riddleRepo.Position(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("count riddles: %w", err)
		}
		return &model.CurrentRiddle{State: model.ProgressComplete, Total: total, Message: model.CompletionMessage}, nil
	}

	now := s.now()
	persisted := model.HintVisibility{Hint1: progress.Hint1Visible, Hint2: progress.Hint2Visible}
	hints := model.HintsVisible(now, progress.StartTime, s.delays).Merge(persisted)
	if hints != persisted {
		// A failed write is recoverable: the next read recomputes from start_time.
		if err := s.progressRepo.MarkHintsVisible(ctx, progress.UserID, riddle.ID, hints); err != nil {
			logrus.WithError(err).WithField("user_id", progress.UserID).Warn("Failed to persist hint visibility")
		}
	}

	pos, total, err := s.riddleRepo.Position(ctx, riddle.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("riddle position: %w", err)
	}

	start := progress.StartTime
	hint1At := start.Add(s.delays.Hint1)
	hint2At := start.Add(s.delays.Hint2)
	return &model.CurrentRiddle{
		State:            model.ProgressActive,
		Riddle:           riddle.ForPlayer(hints),
		Position:         pos,
		Total:            total,
		Hints:            hints,
		StartTime:        &start,
		Hint1AvailableAt: &hint1At,
		Hint2AvailableAt: &hint2At,
	}, nil
}

func (s *ProgressionService) gateOpen(ctx context.Context, identity *model.Identity) (bool, error) {
	if identity.IsAdmin {
		return true, nil
	}
	return s.gate.RiddlesVisible(ctx)
}

// position loads (creating on first access) the user's progress and current riddle.
// The riddle is nil when the sequence is complete or the current riddle was deleted.
func (s *ProgressionService) position(ctx context.Context, userID string) (*model.UserProgress, *model.Riddle, error) {
	progress, err := s.ensureProgress(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if progress.Complete() {
		return progress, nil, nil
	}
	riddle, err := s.riddleRepo.FindByID(ctx, nil, progress.CurrentRiddleID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return progress, nil, nil
		}
		return nil, nil, fmt.Errorf("load current riddle: %w", err)
	}
	return progress, riddle, nil
}

func (s *ProgressionService) ensureProgress(ctx context.Context, userID string) (*model.UserProgress, error) {
	progress, err := s.progressRepo.FindByUserID(ctx, nil, userID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	first, err := s.riddleRepo.FirstActive(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("no riddles configured: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("load first riddle: %w", err)
	}

	created, err := s.progressRepo.CreateIfAbsent(ctx, &model.UserProgress{
		ID:              uuid.NewString(),
		UserID:          userID,
		CurrentRiddleID: first.ID,
		StartTime:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	if created {
		logrus.WithFields(logrus.Fields{"user_id": userID, "riddle_id": first.ID}).Info("Started riddle sequence")
	}

	// Re-read so a concurrent first access converges on the same row.
	progress, err = s.progressRepo.FindByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("reload progress: %w", err)
	}
	return progress, nil
}

// Advance moves progress past riddle inside the caller's transaction. With no
// later active riddle, current_riddle_id stays put and the sequence is marked complete.
func (s *ProgressionService) Advance(ctx context.Context, tx *sql.Tx, progress *model.UserProgress, riddle *model.Riddle) (*AdvanceResult, error) {
	now := s.now()
	next, err := s.riddleRepo.NextActiveAfter(ctx, tx, riddle.OrderNumber)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("find next riddle: %w", err)
		}
		if err := s.progressRepo.MarkComplete(ctx, tx, progress.UserID, now); err != nil {
			return nil, fmt.Errorf("complete sequence: %w", err)
		}
		return &AdvanceResult{Outcome: model.OutcomeComplete}, nil
	}

	if err := s.progressRepo.Advance(ctx, tx, progress.UserID, next.ID, now); err != nil {
		return nil, fmt.Errorf("advance progress: %w", err)
	}
	return &AdvanceResult{Outcome: model.OutcomeAdvanced, NextRiddleID: &next.ID}, nil
}
