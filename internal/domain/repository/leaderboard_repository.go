package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/sirupsen/logrus"
)

type LeaderboardRepository interface {
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	UpsertScore(ctx context.Context, userID string, score int) error
}

type pgLeaderboardRepository struct {
	db *sql.DB
}

func NewPgLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &pgLeaderboardRepository{db: db}
}

// Top orders by score, ties broken by user_id so pages are reproducible.
func (r *pgLeaderboardRepository) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	query := `
        SELECT l.user_id, l.score, l.updated_at, u.name, COALESCE(u.is_team, false), t.name
        FROM leaderboard l
        LEFT JOIN users u ON u.id = l.user_id
        LEFT JOIN teams t ON t.user_id = l.user_id
        ORDER BY l.score DESC, l.user_id ASC
        LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.Top: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var (
			e        model.LeaderboardEntry
			userName sql.NullString
			teamName *string
		)
		if err := rows.Scan(&e.UserID, &e.Score, &e.UpdatedAt, &userName, &e.IsTeam, &teamName); err != nil {
			return nil, fmt.Errorf("pgLeaderboardRepository.Top scan: %w", err)
		}
		if !userName.Valid {
			logrus.WithField("user_id", e.UserID).Info("leaderboard entry has no matching user")
		}
		e.DisplayName = model.ResolveDisplayName(userName.String, e.IsTeam, teamName)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.Top rows: %w", err)
	}
	return entries, nil
}

func (r *pgLeaderboardRepository) UpsertScore(ctx context.Context, userID string, score int) error {
	query := `INSERT INTO leaderboard (user_id, score) VALUES ($1, $2)
	          ON CONFLICT (user_id) DO UPDATE SET score = EXCLUDED.score, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, userID, score); err != nil {
		return fmt.Errorf("pgLeaderboardRepository.UpsertScore: %w", err)
	}
	return nil
}
