package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
)

type ProgressRepository interface {
	// CreateIfAbsent inserts p unless the user already has a row; it reports whether it inserted.
	CreateIfAbsent(ctx context.Context, p *model.UserProgress) (bool, error)
	FindByUserID(ctx context.Context, tx *sql.Tx, userID string) (*model.UserProgress, error)
	// MarkHintsVisible only ever turns flags on, and only while riddleID is still current.
	MarkHintsVisible(ctx context.Context, userID string, riddleID int64, hints model.HintVisibility) error
	Advance(ctx context.Context, tx *sql.Tx, userID string, nextRiddleID int64, startTime time.Time) error
	MarkComplete(ctx context.Context, tx *sql.Tx, userID string, at time.Time) error
}

type pgProgressRepository struct {
	db *sql.DB
}

func NewPgProgressRepository(db *sql.DB) ProgressRepository {
	return &pgProgressRepository{db: db}
}

func (r *pgProgressRepository) CreateIfAbsent(ctx context.Context, p *model.UserProgress) (bool, error) {
	query := `INSERT INTO user_progress (id, user_id, current_riddle_id, hint1_visible, hint2_visible, start_time)
	          VALUES ($1, $2, $3, false, false, $4)
	          ON CONFLICT (user_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, p.ID, p.UserID, p.CurrentRiddleID, p.StartTime)
	if err != nil {
		return false, fmt.Errorf("pgProgressRepository.CreateIfAbsent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgProgressRepository.CreateIfAbsent: %w", err)
	}
	return n == 1, nil
}

func (r *pgProgressRepository) FindByUserID(ctx context.Context, tx *sql.Tx, userID string) (*model.UserProgress, error) {
	query := `SELECT id, user_id, current_riddle_id, hint1_visible, hint2_visible, start_time, completed_at, updated_at
	          FROM user_progress WHERE user_id = $1`
	p := &model.UserProgress{}
	err := on(r.db, tx).QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.CurrentRiddleID, &p.Hint1Visible, &p.Hint2Visible, &p.StartTime, &p.CompletedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProgressRepository.FindByUserID: %w", err)
	}
	return p, nil
}

func (r *pgProgressRepository) MarkHintsVisible(ctx context.Context, userID string, riddleID int64, hints model.HintVisibility) error {
	query := `UPDATE user_progress
	          SET hint1_visible = hint1_visible OR $1, hint2_visible = hint2_visible OR $2, updated_at = CURRENT_TIMESTAMP
	          WHERE user_id = $3 AND current_riddle_id = $4`
	if _, err := r.db.ExecContext(ctx, query, hints.Hint1, hints.Hint2, userID, riddleID); err != nil {
		return fmt.Errorf("pgProgressRepository.MarkHintsVisible: %w", err)
	}
	return nil
}

func (r *pgProgressRepository) Advance(ctx context.Context, tx *sql.Tx, userID string, nextRiddleID int64, startTime time.Time) error {
	query := `UPDATE user_progress
	          SET current_riddle_id = $1, hint1_visible = false, hint2_visible = false,
	              start_time = $2, completed_at = NULL, updated_at = CURRENT_TIMESTAMP
	          WHERE user_id = $3`
	res, err := on(r.db, tx).ExecContext(ctx, query, nextRiddleID, startTime, userID)
	if err != nil {
		return fmt.Errorf("pgProgressRepository.Advance: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}

func (r *pgProgressRepository) MarkComplete(ctx context.Context, tx *sql.Tx, userID string, at time.Time) error {
	query := `UPDATE user_progress SET completed_at = $1, updated_at = CURRENT_TIMESTAMP WHERE user_id = $2`
	res, err := on(r.db, tx).ExecContext(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("pgProgressRepository.MarkComplete: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}
