package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/common/security"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuthService struct {
	userRepo   repository.UserRepository
	identities *IdentityService
	revoker    TokenRevoker
	mailer     Mailer
	appBaseURL string
	db         *sql.DB // For transactions
	now        func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	identities *IdentityService,
	revoker TokenRevoker,
	mailer Mailer,
	appBaseURL string,
	db *sql.DB,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		identities: identities,
		revoker:    revoker,
		mailer:     mailer,
		appBaseURL: appBaseURL,
		db:         db,
		now:        time.Now,
	}
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"` // team name when is_team is set
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	IsTeam   bool   `json:"is_team"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResendConfirmationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type UpdateNameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type SignupResponse struct {
	User    *model.User `json:"user"`
	Message string      `json:"message"`
}

type AuthResponse struct {
	Identity *model.Identity `json:"identity"`
	Token    string          `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		IsTeam:         req.IsTeam,
		HashedPassword: hashedPassword,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		// Repo might return common.ErrConflict
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if req.IsTeam {
		team := &model.Team{ID: uuid.NewString(), Name: req.Name, UserID: user.ID}
		if err := s.userRepo.CreateTeam(ctx, tx, team); err != nil {
			return nil, fmt.Errorf("failed to create team: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.sendConfirmation(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send confirmation email")
	}

	user.HashedPassword = "" // Clear password before returning
	return &SignupResponse{User: user, Message: "Check your email to confirm your account."}, nil
}

func (s *AuthService) sendConfirmation(ctx context.Context, user *model.User) error {
	token, err := security.GenerateConfirmationToken(user.ID)
	if err != nil {
		return fmt.Errorf("generate confirmation token: %w", err)
	}
	link := s.appBaseURL + "/api/v1/auth/confirm?token=" + url.QueryEscape(token)
	return s.mailer.SendConfirmation(ctx, user.Email, user.Name, link)
}

// ResendConfirmation mails a fresh confirmation link to an unconfirmed account.
// Unknown and already confirmed addresses succeed silently.
func (s *AuthService) ResendConfirmation(ctx context.Context, req ResendConfirmationRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := common.Validate(req); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user.EmailConfirmed() {
		return nil
	}
	if err := s.sendConfirmation(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to resend confirmation email")
	}
	return nil
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("missing confirmation token: %w", common.ErrBadRequest)
	}
	userID, err := security.ParseConfirmationToken(token)
	if err != nil {
		return fmt.Errorf("invalid confirmation token: %w", common.ErrBadRequest)
	}
	if err := s.userRepo.ConfirmEmail(ctx, userID, s.now()); err != nil {
		return err
	}
	logrus.WithField("user_id", userID).Info("Email confirmed")
	return nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}
	if !user.EmailConfirmed() {
		return nil, common.ErrEmailNotConfirmed
	}

	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	identity, err := s.identities.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Identity: identity, Token: token}, nil
}

// Logout denylists the session token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("token has no id: %w", common.ErrBadRequest)
	}
	if err := s.revoker.Revoke(ctx, jti, expiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// UpdateName changes the only mutable user field; a team's name follows.
func (s *AuthService) UpdateName(ctx context.Context, userID string, req UpdateNameRequest) (*model.Identity, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.UpdateName(ctx, tx, userID, req.Name); err != nil {
		return nil, err
	}
	if user.IsTeam {
		if err := s.userRepo.UpdateTeamName(ctx, tx, userID, req.Name); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}
	return s.identities.Resolve(ctx, userID)
}
