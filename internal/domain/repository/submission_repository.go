package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
)

type SubmissionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	Exists(ctx context.Context, userID string, riddleID int64) (bool, error)
	FindByID(ctx context.Context, id string) (*model.Submission, error)

	// Moderation
	ListPending(ctx context.Context, limit, offset int) ([]model.PendingSubmission, error)
	CountPending(ctx context.Context) (int, error)
	Decide(ctx context.Context, id string, approved bool) (*model.Submission, error)

	// For leaderboards
	CountApprovedByUser(ctx context.Context, userID string) (int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, user_id, riddle_id, answer, image_path, is_approved, submitted_at, updated_at`

func scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	s := &model.Submission{}
	err := row.Scan(&s.ID, &s.UserID, &s.RiddleID, &s.Answer, &s.ImagePath, &s.IsApproved, &s.SubmittedAt, &s.UpdatedAt)
	return s, err
}

func (r *pgSubmissionRepository) Create(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, riddle_id, answer, image_path, is_approved)
	          VALUES ($1, $2, $3, $4, $5, NULL)
	          RETURNING submitted_at, updated_at`
	err := on(r.db, tx).QueryRowContext(ctx, query, s.ID, s.UserID, s.RiddleID, s.Answer, s.ImagePath).
		Scan(&s.SubmittedAt, &s.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) { // UNIQUE (user_id, riddle_id)
			return fmt.Errorf("pgSubmissionRepository.Create: %w", common.ErrAlreadySubmitted)
		}
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) Exists(ctx context.Context, userID string, riddleID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM submissions WHERE user_id = $1 AND riddle_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, riddleID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Exists: %w", err)
	}
	return exists, nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindByID: %w", err)
	}
	return s, nil
}

// ListPending returns undecided submissions newest first, with display name and
// riddle question joined in. ImageURL is left for the caller to sign.
func (r *pgSubmissionRepository) ListPending(ctx context.Context, limit, offset int) ([]model.PendingSubmission, error) {
	query := `
        SELECT s.id, s.user_id, s.riddle_id, s.answer, s.image_path, s.is_approved, s.submitted_at, s.updated_at,
               u.name, COALESCE(u.is_team, false), t.name, rd.question
        FROM submissions s
        LEFT JOIN users u ON u.id = s.user_id
        LEFT JOIN teams t ON t.user_id = s.user_id
        JOIN riddles rd ON rd.id = s.riddle_id
        WHERE s.is_approved IS NULL
        ORDER BY s.submitted_at DESC, s.id ASC
        LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListPending: %w", err)
	}
	defer rows.Close()

	items := []model.PendingSubmission{}
	for rows.Next() {
		var (
			p        model.PendingSubmission
			userName sql.NullString
			isTeam   bool
			teamName *string
		)
		err := rows.Scan(
			&p.ID, &p.UserID, &p.RiddleID, &p.Answer, &p.ImagePath, &p.IsApproved, &p.SubmittedAt, &p.UpdatedAt,
			&userName, &isTeam, &teamName, &p.RiddleQuestion,
		)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListPending scan: %w", err)
		}
		p.DisplayName = model.ResolveDisplayName(userName.String, isTeam, teamName)
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListPending rows: %w", err)
	}
	return items, nil
}

func (r *pgSubmissionRepository) CountPending(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE is_approved IS NULL`).Scan(&total); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountPending: %w", err)
	}
	return total, nil
}

// Decide sets is_approved once. A second decision yields ErrConflict.
func (r *pgSubmissionRepository) Decide(ctx context.Context, id string, approved bool) (*model.Submission, error) {
	query := `UPDATE submissions SET is_approved = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND is_approved IS NULL
	          RETURNING ` + submissionColumns
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, approved, id))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pgSubmissionRepository.Decide: %w", err)
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("submission %s already decided: %w", id, common.ErrConflict)
}

func (r *pgSubmissionRepository) CountApprovedByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE user_id = $1 AND is_approved = true`
	var n int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountApprovedByUser: %w", err)
	}
	return n, nil
}
