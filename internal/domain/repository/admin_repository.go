package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/google/uuid"
)

// AdminRepository manages the admins marker table. A row grants admin capability.
type AdminRepository interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	Grant(ctx context.Context, userID string) error
	Revoke(ctx context.Context, userID string) error
}

type pgAdminRepository struct {
	db *sql.DB
}

func NewPgAdminRepository(db *sql.DB) AdminRepository {
	return &pgAdminRepository{db: db}
}

func (r *pgAdminRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgAdminRepository.IsAdmin: %w", err)
	}
	return exists, nil
}

func (r *pgAdminRepository) Grant(ctx context.Context, userID string) error {
	query := `INSERT INTO admins (id, user_id) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID); err != nil {
		return fmt.Errorf("pgAdminRepository.Grant: %w", err)
	}
	return nil
}

func (r *pgAdminRepository) Revoke(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("pgAdminRepository.Revoke: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}
