package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"
)

// IdentityService turns an authenticated user id into the caller's identity.
type IdentityService struct {
	userRepo  repository.UserRepository
	adminRepo repository.AdminRepository
}

func NewIdentityService(userRepo repository.UserRepository, adminRepo repository.AdminRepository) *IdentityService {
	return &IdentityService{userRepo: userRepo, adminRepo: adminRepo}
}

func (s *IdentityService) Resolve(ctx context.Context, userID string) (*model.Identity, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("user no longer exists: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	user.HashedPassword = ""

	var teamName *string
	if user.IsTeam {
		team, err := s.userRepo.FindTeamByUserID(ctx, user.ID)
		switch {
		case err == nil:
			teamName = &team.Name
		case !errors.Is(err, common.ErrNotFound):
			return nil, fmt.Errorf("resolve team: %w", err)
		}
	}

	isAdmin, err := s.adminRepo.IsAdmin(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve admin flag: %w", err)
	}

	return &model.Identity{
		User:        user,
		DisplayName: model.ResolveDisplayName(user.Name, user.IsTeam, teamName),
		IsAdmin:     isAdmin,
	}, nil
}
