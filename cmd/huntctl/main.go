package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/Zeygath/th-2024/internal/domain/repository"
	"github.com/Zeygath/th-2024/internal/platform/config"
	"github.com/Zeygath/th-2024/internal/platform/database"
	"github.com/Zeygath/th-2024/internal/platform/logging"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	config.Load()
	logging.Setup("huntctl", config.AppConfig.LogLevel)

	app := &cli.App{
		Name:  "huntctl",
		Usage: "operate the treasure hunt backend",
		Commands: []*cli.Command{
			migrateCommand(),
			adminCommand(),
			visibilityCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("huntctl failed")
	}
}

// withDB opens the configured database for the duration of one action.
func withDB(action func(c *cli.Context, db *sql.DB) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := database.Open(config.AppConfig.DBConnStr)
		if err != nil {
			return err
		}
		defer db.Close()
		return action(c, db)
	}
}

func withMigrator(action func(c *cli.Context, m *migrate.Migrator) error) cli.ActionFunc {
	return withDB(func(c *cli.Context, db *sql.DB) error {
		return action(c, database.NewMigrator(db))
	})
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					return m.Init(c.Context)
				}),
			},
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withDB(func(c *cli.Context, db *sql.DB) error {
					return database.Migrate(c.Context, db)
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer m.Unlock(c.Context) //nolint:errcheck

					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No groups to roll back")
					} else {
						fmt.Printf("Rolled back %s\n", group)
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Migrations: %s\n", ms)
					fmt.Printf("Applied:    %s\n", ms.Applied())
					fmt.Printf("Unapplied:  %s\n", ms.Unapplied())
					return nil
				}),
			},
		},
	}
}

func adminCommand() *cli.Command {
	emailFlag := &cli.StringFlag{Name: "email", Usage: "account email", Required: true}

	lookup := func(c *cli.Context, db *sql.DB) (string, error) {
		email := strings.ToLower(strings.TrimSpace(c.String("email")))
		user, err := repository.NewPgUserRepository(db).FindByEmail(c.Context, email)
		if err != nil {
			return "", fmt.Errorf("find user %s: %w", email, err)
		}
		return user.ID, nil
	}

	return &cli.Command{
		Name:  "admin",
		Usage: "manage admin accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "grant",
				Usage: "give an account admin rights",
				Flags: []cli.Flag{emailFlag},
				Action: withDB(func(c *cli.Context, db *sql.DB) error {
					userID, err := lookup(c, db)
					if err != nil {
						return err
					}
					if err := repository.NewPgAdminRepository(db).Grant(c.Context, userID); err != nil {
						return err
					}
					fmt.Printf("Granted admin to %s (%s)\n", c.String("email"), userID)
					return nil
				}),
			},
			{
				Name:  "revoke",
				Usage: "remove admin rights",
				Flags: []cli.Flag{emailFlag},
				Action: withDB(func(c *cli.Context, db *sql.DB) error {
					userID, err := lookup(c, db)
					if err != nil {
						return err
					}
					if err := repository.NewPgAdminRepository(db).Revoke(c.Context, userID); err != nil {
						return err
					}
					fmt.Printf("Revoked admin from %s (%s)\n", c.String("email"), userID)
					return nil
				}),
			},
		},
	}
}

func visibilityCommand() *cli.Command {
	set := func(visible bool) cli.ActionFunc {
		return withDB(func(c *cli.Context, db *sql.DB) error {
			settings, err := repository.NewPgSettingsRepository(db).SetRiddlesVisible(c.Context, visible)
			if err != nil {
				return err
			}
			fmt.Printf("riddles_visible = %t\n", settings.RiddlesVisible)
			return nil
		})
	}

	return &cli.Command{
		Name:  "visibility",
		Usage: "show or toggle whether riddles are served to players",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the current setting",
				Action: withDB(func(c *cli.Context, db *sql.DB) error {
					settings, err := repository.NewPgSettingsRepository(db).Get(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("riddles_visible = %t (updated %s)\n", settings.RiddlesVisible, settings.UpdatedAt.Format("2006-01-02 15:04:05"))
					return nil
				}),
			},
			{Name: "on", Usage: "make riddles visible", Action: set(true)},
			{Name: "off", Usage: "hide riddles", Action: set(false)},
		},
	}
}
