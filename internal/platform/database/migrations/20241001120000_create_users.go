package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		logrus.Info("Creating users, teams and admins tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS users (
					id                 UUID PRIMARY KEY,
					name               TEXT NOT NULL,
					email              TEXT NOT NULL,
					is_team            BOOLEAN NOT NULL DEFAULT false,
					hashed_password    TEXT NOT NULL,
					email_confirmed_at TIMESTAMPTZ,
					created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email));

				CREATE TABLE IF NOT EXISTS teams (
					id         UUID PRIMARY KEY,
					name       TEXT NOT NULL,
					user_id    UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS admins (
					id         UUID PRIMARY KEY,
					user_id    UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create user tables: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		logrus.Info("Rolling back users, teams and admins tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS admins;
				DROP TABLE IF EXISTS teams;
				DROP TABLE IF EXISTS users;
			`); err != nil {
				return fmt.Errorf("failed to drop user tables: %w", err)
			}
			return nil
		})
	})
}
