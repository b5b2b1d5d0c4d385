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

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	CreateTeam(ctx context.Context, tx *sql.Tx, team *model.Team) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindTeamByUserID(ctx context.Context, userID string) (*model.Team, error)
	UpdateName(ctx context.Context, tx *sql.Tx, userID, name string) error
	UpdateTeamName(ctx context.Context, tx *sql.Tx, userID, name string) error
	ConfirmEmail(ctx context.Context, userID string, at time.Time) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, name, email, is_team, hashed_password, email_confirmed_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.IsTeam, &user.HashedPassword,
		&user.EmailConfirmedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *pgUserRepository) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `INSERT INTO users (id, name, email, is_team, hashed_password)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := on(r.db, tx).QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.IsTeam, user.HashedPassword).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) CreateTeam(ctx context.Context, tx *sql.Tx, team *model.Team) error {
	query := `INSERT INTO teams (id, name, user_id) VALUES ($1, $2, $3) RETURNING created_at`
	err := on(r.db, tx).QueryRowContext(ctx, query, team.ID, team.Name, team.UserID).Scan(&team.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("team already exists for user: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.CreateTeam: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindTeamByUserID(ctx context.Context, userID string) (*model.Team, error) {
	query := `SELECT id, name, user_id, created_at FROM teams WHERE user_id = $1`
	team := &model.Team{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&team.ID, &team.Name, &team.UserID, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindTeamByUserID: %w", err)
	}
	return team, nil
}

func (r *pgUserRepository) UpdateName(ctx context.Context, tx *sql.Tx, userID, name string) error {
	query := `UPDATE users SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := on(r.db, tx).ExecContext(ctx, query, name, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateName: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}

// UpdateTeamName is a no-op for users without a team row.
func (r *pgUserRepository) UpdateTeamName(ctx context.Context, tx *sql.Tx, userID, name string) error {
	query := `UPDATE teams SET name = $1 WHERE user_id = $2`
	if _, err := on(r.db, tx).ExecContext(ctx, query, name, userID); err != nil {
		return fmt.Errorf("pgUserRepository.UpdateTeamName: %w", err)
	}
	return nil
}

// ConfirmEmail keeps the first confirmation time when called twice.
func (r *pgUserRepository) ConfirmEmail(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE users SET email_confirmed_at = COALESCE(email_confirmed_at, $1), updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.ConfirmEmail: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}
