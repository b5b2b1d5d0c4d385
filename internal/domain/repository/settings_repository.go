package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zeygath/th-2024/internal/domain/model"
)

type SettingsRepository interface {
	// Get creates the singleton row with riddles hidden on first read.
	Get(ctx context.Context) (*model.AppSettings, error)
	SetRiddlesVisible(ctx context.Context, visible bool) (*model.AppSettings, error)
}

type pgSettingsRepository struct {
	db *sql.DB
}

func NewPgSettingsRepository(db *sql.DB) SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func (r *pgSettingsRepository) Get(ctx context.Context) (*model.AppSettings, error) {
	ensure := `INSERT INTO app_settings (id, riddles_visible) VALUES ($1, false) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, ensure, model.SettingsRowID); err != nil {
		return nil, fmt.Errorf("pgSettingsRepository.Get ensure: %w", err)
	}
	s := &model.AppSettings{}
	query := `SELECT id, riddles_visible, updated_at FROM app_settings WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, model.SettingsRowID).Scan(&s.ID, &s.RiddlesVisible, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("pgSettingsRepository.Get: %w", err)
	}
	return s, nil
}

func (r *pgSettingsRepository) SetRiddlesVisible(ctx context.Context, visible bool) (*model.AppSettings, error) {
	query := `INSERT INTO app_settings (id, riddles_visible) VALUES ($1, $2)
	          ON CONFLICT (id) DO UPDATE SET riddles_visible = EXCLUDED.riddles_visible, updated_at = CURRENT_TIMESTAMP
	          RETURNING id, riddles_visible, updated_at`
	s := &model.AppSettings{}
	if err := r.db.QueryRowContext(ctx, query, model.SettingsRowID, visible).Scan(&s.ID, &s.RiddlesVisible, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("pgSettingsRepository.SetRiddlesVisible: %w", err)
	}
	return s, nil
}
