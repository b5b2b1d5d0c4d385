package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		logrus.Info("Creating riddles table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS riddles (
					id                  BIGSERIAL PRIMARY KEY,
					question            TEXT NOT NULL,
					answer              TEXT NOT NULL,
					hint1               TEXT NOT NULL DEFAULT '',
					hint2               TEXT NOT NULL DEFAULT '',
					order_number        INTEGER NOT NULL UNIQUE,
					riddle_type         TEXT,
					reference_image_url TEXT,
					is_active           BOOLEAN NOT NULL DEFAULT true,
					created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_riddles_active_order ON riddles (order_number) WHERE is_active;
			`); err != nil {
				return fmt.Errorf("failed to create riddles table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		logrus.Info("Rolling back riddles table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS riddles;`); err != nil {
				return fmt.Errorf("failed to drop riddles: %w", err)
			}
			return nil
		})
	})
}
