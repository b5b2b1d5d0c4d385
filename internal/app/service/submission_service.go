package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"
	"github.com/Zeygath/th-2024/internal/platform/metrics"
	"github.com/Zeygath/th-2024/internal/platform/queue"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	progression    *ProgressionService
	gate           VisibilityGate
	locker         Locker
	store          storage.ObjectStore
	trimAnswers    bool
	db             *sql.DB // For transactions
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	progression *ProgressionService,
	gate VisibilityGate,
	locker Locker,
	store storage.ObjectStore,
	trimAnswers bool,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		progression:    progression,
		gate:           gate,
		locker:         locker,
		store:          store,
		trimAnswers:    trimAnswers,
		db:             db,
	}
}

type SubmitAnswerRequest struct {
	RiddleID int64  `json:"riddle_id" validate:"required,gt=0"`
	Answer   string `json:"answer" validate:"required,max=500"`
}

type SubmitResult struct {
	Submission   *model.Submission    `json:"submission"`
	Outcome      model.AdvanceOutcome `json:"outcome"`
	NextRiddleID *int64               `json:"next_riddle_id,omitempty"`
	Message      string               `json:"message,omitempty"`
}

// AnswersMatch compares case-insensitively (Unicode simple folding, no locale).
// Surrounding whitespace is ignored only when trim is set.
func AnswersMatch(given, canonical string, trim bool) bool {
	if trim {
		given = strings.TrimSpace(given)
		canonical = strings.TrimSpace(canonical)
	}
	return strings.EqualFold(given, canonical)
}

// Submit checks an answer against the caller's current riddle. A correct answer
// stores the optional image, records the submission and advances progress; a wrong
// one changes nothing.
func (s *SubmissionService) Submit(ctx context.Context, identity *model.Identity, req SubmitAnswerRequest, image *storage.Image) (*SubmitResult, error) {
	if identity == nil || identity.User == nil {
		return nil, common.ErrUnauthorized
	}
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	userID := identity.UserID()
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "riddle_id": req.RiddleID})

	if !identity.IsAdmin {
		visible, err := s.gate.RiddlesVisible(ctx)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, common.ErrRiddlesHidden
		}
	}

	progress, riddle, err := s.progression.position(ctx, userID)
	if err != nil {
		return nil, err
	}
	if riddle == nil || riddle.ID != req.RiddleID {
		// Answering a riddle already solved is a duplicate, not a mismatch.
		if err := s.rejectAnswered(ctx, userID, req.RiddleID); err != nil {
			return nil, err
		}
		if riddle == nil {
			return nil, common.ErrSequenceComplete
		}
		return nil, fmt.Errorf("riddle %d is not your current riddle: %w", req.RiddleID, common.ErrBadRequest)
	}

	unlock, err := s.locker.TryLock(ctx, queue.SubmissionLockKey(userID, riddle.ID))
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("a submission for this riddle is already in progress: %w", common.ErrConflict)
		}
		return nil, fmt.Errorf("acquire submission lock: %w", err)
	}
	defer unlock()

	if err := s.rejectAnswered(ctx, userID, riddle.ID); err != nil {
		return nil, err
	}

	if !AnswersMatch(req.Answer, riddle.Answer, s.trimAnswers) {
		metrics.SubmissionOutcomes.WithLabelValues("wrong").Inc()
		return nil, common.ErrWrongAnswer
	}

	var imagePath *string
	if image != nil {
		p := fmt.Sprintf("%s/%s.%s", userID, uuid.NewString(), image.Ext)
		if err := s.store.Put(ctx, storage.BucketSubmissions, p, image.Reader()); err != nil {
			metrics.SubmissionOutcomes.WithLabelValues("upload_failed").Inc()
			log.WithError(err).Error("Submission image upload failed")
			return nil, common.ErrUploadFailed
		}
		imagePath = &p
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		RiddleID:  riddle.ID,
		Answer:    req.Answer,
		ImagePath: imagePath,
	}
	result, err := s.record(ctx, submission, progress, riddle)
	if err != nil {
		s.discardImage(imagePath, log)
		if errors.Is(err, common.ErrAlreadySubmitted) {
			metrics.SubmissionOutcomes.WithLabelValues("duplicate").Inc()
			return nil, common.ErrAlreadySubmitted
		}
		return nil, err
	}

	metrics.SubmissionOutcomes.WithLabelValues("correct").Inc()
	log.WithField("outcome", result.Outcome).Info("Correct answer recorded")
	return result, nil
}

func (s *SubmissionService) rejectAnswered(ctx context.Context, userID string, riddleID int64) error {
	exists, err := s.submissionRepo.Exists(ctx, userID, riddleID)
	if err != nil {
		return fmt.Errorf("check existing submission: %w", err)
	}
	if exists {
		metrics.SubmissionOutcomes.WithLabelValues("duplicate").Inc()
		return common.ErrAlreadySubmitted
	}
	return nil
}

// record inserts the submission and advances progress as one transaction.
func (s *SubmissionService) record(ctx context.Context, submission *model.Submission, progress *model.UserProgress, riddle *model.Riddle) (*SubmitResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.Create(ctx, tx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}
	advance, err := s.progression.Advance(ctx, tx, progress, riddle)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	result := &SubmitResult{Submission: submission, Outcome: advance.Outcome, NextRiddleID: advance.NextRiddleID}
	if advance.Outcome == model.OutcomeComplete {
		result.Message = model.CompletionMessage
	}
	return result, nil
}

func (s *SubmissionService) discardImage(imagePath *string, log *logrus.Entry) {
	if imagePath == nil {
		return
	}
	// The request may have been cancelled; cleanup gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, storage.BucketSubmissions, *imagePath); err != nil {
		log.WithError(err).WithField("path", *imagePath).Error("Failed to remove orphaned submission image")
	}
}
