package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zeygath/th-2024/internal/domain/repository"
	"github.com/Zeygath/th-2024/internal/platform/metrics"
	"github.com/Zeygath/th-2024/internal/platform/queue"

	"github.com/sirupsen/logrus"
)

// JobQueue is the score job list; queue.ScoreQueue in production.
type JobQueue interface {
	Enqueue(ctx context.Context, userID string) error
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
}

// ScoreWorker recomputes a user's leaderboard score each time one of their
// submissions is approved. Jobs carry only the user id, so duplicates are harmless.
type ScoreWorker struct {
	jobs             JobQueue
	submissionRepo   repository.SubmissionRepository
	leaderboardRepo  repository.LeaderboardRepository
	pointsPerApprove int

	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewScoreWorker(jobs JobQueue, subRepo repository.SubmissionRepository, lbRepo repository.LeaderboardRepository, pointsPerApprove int) *ScoreWorker {
	return &ScoreWorker{
		jobs:             jobs,
		submissionRepo:   subRepo,
		leaderboardRepo:  lbRepo,
		pointsPerApprove: pointsPerApprove,
		pollTimeout:      5 * time.Second,
		retryDelay:       5 * time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (w *ScoreWorker) Start(ctx context.Context) {
	logrus.Info("Score worker started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Score worker stopping...")
			return
		default:
		}

		userID, err := w.jobs.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			logrus.WithError(err).Error("Failed to pop score job")
			w.sleep(ctx)
			continue
		}
		if userID == "" {
			logrus.Warn("Score queue returned an empty user id")
			continue
		}

		if err := w.Process(ctx, userID); err != nil {
			metrics.ScoreJobs.WithLabelValues("failed").Inc()
			logrus.WithError(err).WithField("user_id", userID).Error("Score recalculation failed, re-queueing")
			if err := w.jobs.Enqueue(context.WithoutCancel(ctx), userID); err != nil {
				logrus.WithError(err).WithField("user_id", userID).Error("Failed to re-queue score job")
			}
			w.sleep(ctx)
			continue
		}
		metrics.ScoreJobs.WithLabelValues("processed").Inc()
	}
}

// Process recomputes the score from approved submissions and stores it.
func (w *ScoreWorker) Process(ctx context.Context, userID string) error {
	approved, err := w.submissionRepo.CountApprovedByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count approved submissions: %w", err)
	}
	score := approved * w.pointsPerApprove
	if err := w.leaderboardRepo.UpsertScore(ctx, userID, score); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "score": score}).Info("Leaderboard score updated")
	return nil
}

func (w *ScoreWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
