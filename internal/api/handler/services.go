package handler

import (
	"context"
	"io"
	"time"

	"github.com/Zeygath/th-2024/internal/app/service"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/platform/storage"
)

// The handlers depend on these method sets; the *service types satisfy them.

type AuthService interface {
	Signup(ctx context.Context, req service.SignupRequest) (*service.SignupResponse, error)
	ConfirmEmail(ctx context.Context, token string) error
	ResendConfirmation(ctx context.Context, req service.ResendConfirmationRequest) error
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResponse, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	UpdateName(ctx context.Context, userID string, req service.UpdateNameRequest) (*model.Identity, error)
}

type SettingsService interface {
	Snapshot(ctx context.Context) (*service.SettingsResponse, error)
	SetRiddlesVisible(ctx context.Context, req service.SetVisibilityRequest) (*model.AppSettings, error)
}

type LeaderboardService interface {
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type ProgressionService interface {
	Current(ctx context.Context, identity *model.Identity) (*model.CurrentRiddle, error)
}

type SubmissionService interface {
	Submit(ctx context.Context, identity *model.Identity, req service.SubmitAnswerRequest, image *storage.Image) (*service.SubmitResult, error)
}

type ModerationService interface {
	ListPending(ctx context.Context, page int) (*model.SubmissionPage, error)
	Decide(ctx context.Context, submissionID string, approved bool) (*model.Submission, error)
}

type RiddleService interface {
	List(ctx context.Context) ([]model.Riddle, error)
	Get(ctx context.Context, id int64) (*model.Riddle, error)
	Create(ctx context.Context, req service.RiddleRequest) (*model.Riddle, error)
	Update(ctx context.Context, id int64, req service.RiddleRequest) (*model.Riddle, error)
	Delete(ctx context.Context, id int64) error
	UploadReferenceImage(ctx context.Context, id int64, image *storage.Image) (*model.Riddle, error)
}

type ObjectReader interface {
	Get(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error)
}

type ObjectVerifier interface {
	Verify(token, bucket, objectPath string) error
}
