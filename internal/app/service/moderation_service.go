package service

import (
	"context"
	"fmt"

	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"
	"github.com/Zeygath/th-2024/internal/platform/metrics"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/sirupsen/logrus"
)

const ModerationPageSize = 10

type ModerationService struct {
	submissionRepo repository.SubmissionRepository
	signer         URLSigner
	scores         ScoreEnqueuer
}

func NewModerationService(subRepo repository.SubmissionRepository, signer URLSigner, scores ScoreEnqueuer) *ModerationService {
	return &ModerationService{submissionRepo: subRepo, signer: signer, scores: scores}
}

// ListPending returns one page of undecided submissions, newest first. Pages start at 1.
func (s *ModerationService) ListPending(ctx context.Context, page int) (*model.SubmissionPage, error) {
	if page < 1 {
		page = 1
	}
	total, err := s.submissionRepo.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending submissions: %w", err)
	}
	items, err := s.submissionRepo.ListPending(ctx, ModerationPageSize, (page-1)*ModerationPageSize)
	if err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}

	for i := range items {
		if items[i].ImagePath == nil {
			continue
		}
		url, err := s.signer.SignedURL(storage.BucketSubmissions, *items[i].ImagePath)
		if err != nil {
			logrus.WithError(err).WithField("submission_id", items[i].ID).Warn("Failed to sign submission image URL")
			continue
		}
		items[i].ImageURL = &url
	}

	return &model.SubmissionPage{Items: items, Page: page, PageSize: ModerationPageSize, Total: total}, nil
}

// Decide approves or rejects a pending submission. Decisions are final.
func (s *ModerationService) Decide(ctx context.Context, submissionID string, approved bool) (*model.Submission, error) {
	submission, err := s.submissionRepo.Decide(ctx, submissionID, approved)
	if err != nil {
		return nil, err
	}

	decision := "rejected"
	if approved {
		decision = "approved"
	}
	metrics.ModerationDecisions.WithLabelValues(decision).Inc()
	logrus.WithFields(logrus.Fields{
		"submission_id": submission.ID,
		"user_id":       submission.UserID,
		"decision":      decision,
	}).Info("Submission moderated")

	if approved {
		// The decision is already stored; a lost job only delays the score update.
		if err := s.scores.Enqueue(ctx, submission.UserID); err != nil {
			logrus.WithError(err).WithField("user_id", submission.UserID).Error("Failed to enqueue score recalculation")
		}
	}
	return submission, nil
}
