package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

type RiddleService struct {
	riddleRepo repository.RiddleRepository
	store      storage.ObjectStore
	signer     URLSigner
}

func NewRiddleService(riddleRepo repository.RiddleRepository, store storage.ObjectStore, signer URLSigner) *RiddleService {
	return &RiddleService{riddleRepo: riddleRepo, store: store, signer: signer}
}

type RiddleRequest struct {
	Question    string  `json:"question" validate:"required"`
	Answer      string  `json:"answer" validate:"required,max=500"`
	Hint1       string  `json:"hint1"`
	Hint2       string  `json:"hint2"`
	OrderNumber int     `json:"order_number" validate:"gte=1"`
	RiddleType  *string `json:"riddle_type,omitempty" validate:"omitempty,max=64"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (s *RiddleService) List(ctx context.Context) ([]model.Riddle, error) {
	riddles, err := s.riddleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list riddles: %w", err)
	}
	return riddles, nil
}

func (s *RiddleService) Get(ctx context.Context, id int64) (*model.Riddle, error) {
	return s.riddleRepo.FindByID(ctx, nil, id)
}

func (s *RiddleService) Create(ctx context.Context, req RiddleRequest) (*model.Riddle, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	if err := s.ensureOrderFree(ctx, req.OrderNumber, 0); err != nil {
		return nil, err
	}

	riddle := &model.Riddle{IsActive: true}
	applyRiddleRequest(riddle, req)
	if err := s.riddleRepo.Create(ctx, nil, riddle); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"riddle_id": riddle.ID, "order_number": riddle.OrderNumber}).Info("Riddle created")
	return riddle, nil
}

func (s *RiddleService) Update(ctx context.Context, id int64, req RiddleRequest) (*model.Riddle, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	riddle, err := s.riddleRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if riddle.OrderNumber != req.OrderNumber {
		if err := s.ensureOrderFree(ctx, req.OrderNumber, id); err != nil {
			return nil, err
		}
	}

	applyRiddleRequest(riddle, req)
	if err := s.riddleRepo.Update(ctx, nil, riddle); err != nil {
		return nil, err
	}
	return riddle, nil
}

// Delete is unguarded: players pointing at the riddle see the sequence as complete.
func (s *RiddleService) Delete(ctx context.Context, id int64) error {
	if err := s.riddleRepo.Delete(ctx, id); err != nil {
		return err
	}
	logrus.WithField("riddle_id", id).Info("Riddle deleted")
	return nil
}

// UploadReferenceImage stores image in the public bucket and records its URL.
func (s *RiddleService) UploadReferenceImage(ctx context.Context, id int64, image *storage.Image) (*model.Riddle, error) {
	if image == nil {
		return nil, fmt.Errorf("image is required: %w", common.ErrBadRequest)
	}
	current, err := s.riddleRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	objectPath := fmt.Sprintf("%d/%s.%s", id, uuid.NewString(), image.Ext)
	if err := s.store.Put(ctx, storage.BucketRiddleImages, objectPath, image.Reader()); err != nil {
		logrus.WithError(err).WithField("riddle_id", id).Error("Reference image upload failed")
		return nil, common.ErrUploadFailed
	}

	url := s.signer.PublicURL(storage.BucketRiddleImages, objectPath)
	if err := s.riddleRepo.SetReferenceImage(ctx, id, url); err != nil {
		s.discardReferenceImage(objectPath)
		return nil, err
	}
	if current.ReferenceImageURL != nil {
		if previous, ok := s.signer.ObjectPath(storage.BucketRiddleImages, *current.ReferenceImageURL); ok && previous != objectPath {
			s.discardReferenceImage(previous)
		}
	}
	return s.riddleRepo.FindByID(ctx, nil, id)
}

func (s *RiddleService) discardReferenceImage(objectPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, storage.BucketRiddleImages, objectPath); err != nil {
		logrus.WithError(err).WithField("path", objectPath).Error("Failed to remove orphaned reference image")
	}
}

// ensureOrderFree rejects an order number held by a riddle other than selfID.
// The unique constraint remains the final guard.
func (s *RiddleService) ensureOrderFree(ctx context.Context, orderNumber int, selfID int64) error {
	existing, err := s.riddleRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check order number: %w", err)
	}
	if existing.ID != selfID {
		return fmt.Errorf("order number %d is already used by riddle %d: %w", orderNumber, existing.ID, common.ErrConflict)
	}
	return nil
}

func applyRiddleRequest(r *model.Riddle, req RiddleRequest) {
	r.Question = strings.TrimSpace(req.Question)
	r.Answer = req.Answer
	r.Hint1 = req.Hint1
	r.Hint2 = req.Hint2
	r.OrderNumber = req.OrderNumber
	r.RiddleType = normalizeRiddleType(req.RiddleType)
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
}

func normalizeRiddleType(t *string) *string {
	if t == nil {
		return nil
	}
	s := slug.Make(*t)
	if s == "" {
		return nil
	}
	return &s
}
