package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		logrus.Info("Creating user_progress, submissions, leaderboard and app_settings tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			// current_riddle_id has no foreign key: a deleted riddle reads as a finished sequence.
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS user_progress (
					id                UUID PRIMARY KEY,
					user_id           UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
					current_riddle_id BIGINT NOT NULL,
					hint1_visible     BOOLEAN NOT NULL DEFAULT false,
					hint2_visible     BOOLEAN NOT NULL DEFAULT false,
					start_time        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					completed_at      TIMESTAMPTZ,
					updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS submissions (
					id           UUID PRIMARY KEY,
					user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					riddle_id    BIGINT NOT NULL REFERENCES riddles(id) ON DELETE CASCADE,
					answer       TEXT NOT NULL,
					image_path   TEXT,
					is_approved  BOOLEAN,
					submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_submissions_user_riddle UNIQUE (user_id, riddle_id)
				);
				CREATE INDEX IF NOT EXISTS idx_submissions_pending ON submissions (submitted_at DESC) WHERE is_approved IS NULL;

				CREATE TABLE IF NOT EXISTS leaderboard (
					id         BIGSERIAL PRIMARY KEY,
					user_id    UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
					score      INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_leaderboard_rank ON leaderboard (score DESC, user_id ASC);

				CREATE TABLE IF NOT EXISTS app_settings (
					id              INTEGER PRIMARY KEY CHECK (id = 1),
					riddles_visible BOOLEAN NOT NULL DEFAULT false,
					updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create game state tables: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		logrus.Info("Rolling back game state tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS app_settings;
				DROP TABLE IF EXISTS leaderboard;
				DROP TABLE IF EXISTS submissions;
				DROP TABLE IF EXISTS user_progress;
			`); err != nil {
				return fmt.Errorf("failed to drop game state tables: %w", err)
			}
			return nil
		})
	})
}
