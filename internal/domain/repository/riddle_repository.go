package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
)

type RiddleRepository interface {
	Create(ctx context.Context, tx *sql.Tx, riddle *model.Riddle) error
	Update(ctx context.Context, tx *sql.Tx, riddle *model.Riddle) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, tx *sql.Tx, id int64) (*model.Riddle, error)
	FindByOrderNumber(ctx context.Context, orderNumber int) (*model.Riddle, error)
	List(ctx context.Context) ([]model.Riddle, error)
	SetReferenceImage(ctx context.Context, id int64, url string) error

	// Sequence lookups only consider active riddles.
	FirstActive(ctx context.Context) (*model.Riddle, error)
	NextActiveAfter(ctx context.Context, tx *sql.Tx, orderNumber int) (*model.Riddle, error)
	Position(ctx context.Context, orderNumber int) (position, total int, err error)
}

type pgRiddleRepository struct {
	db *sql.DB
}

func NewPgRiddleRepository(db *sql.DB) RiddleRepository {
	return &pgRiddleRepository{db: db}
}

const riddleColumns = `id, question, answer, hint1, hint2, order_number, riddle_type, reference_image_url, is_active, created_at, updated_at`

func scanRiddle(row interface{ Scan(...any) error }) (*model.Riddle, error) {
	rd := &model.Riddle{}
	err := row.Scan(
		&rd.ID, &rd.Question, &rd.Answer, &rd.Hint1, &rd.Hint2, &rd.OrderNumber,
		&rd.RiddleType, &rd.ReferenceImageURL, &rd.IsActive, &rd.CreatedAt, &rd.UpdatedAt,
	)
	return rd, err
}

func (r *pgRiddleRepository) Create(ctx context.Context, tx *sql.Tx, rd *model.Riddle) error {
	query := `INSERT INTO riddles (question, answer, hint1, hint2, order_number, riddle_type, reference_image_url, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at, updated_at`
	err := on(r.db, tx).QueryRowContext(ctx, query,
		rd.Question, rd.Answer, rd.Hint1, rd.Hint2, rd.OrderNumber, rd.RiddleType, rd.ReferenceImageURL, rd.IsActive,
	).Scan(&rd.ID, &rd.CreatedAt, &rd.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("riddle with order number %d already exists: %w", rd.OrderNumber, common.ErrConflict)
		}
		return fmt.Errorf("pgRiddleRepository.Create: %w", err)
	}
	return nil
}

func (r *pgRiddleRepository) Update(ctx context.Context, tx *sql.Tx, rd *model.Riddle) error {
	query := `UPDATE riddles SET
	            question = $1, answer = $2, hint1 = $3, hint2 = $4, order_number = $5,
	            riddle_type = $6, reference_image_url = $7, is_active = $8, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $9
	          RETURNING updated_at`
	err := on(r.db, tx).QueryRowContext(ctx, query,
		rd.Question, rd.Answer, rd.Hint1, rd.Hint2, rd.OrderNumber, rd.RiddleType, rd.ReferenceImageURL, rd.IsActive, rd.ID,
	).Scan(&rd.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("riddle with order number %d already exists: %w", rd.OrderNumber, common.ErrConflict)
		}
		return fmt.Errorf("pgRiddleRepository.Update: %w", err)
	}
	return nil
}

func (r *pgRiddleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM riddles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgRiddleRepository.Delete: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}

func (r *pgRiddleRepository) FindByID(ctx context.Context, tx *sql.Tx, id int64) (*model.Riddle, error) {
	query := `SELECT ` + riddleColumns + ` FROM riddles WHERE id = $1`
	rd, err := scanRiddle(on(r.db, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRiddleRepository.FindByID: %w", err)
	}
	return rd, nil
}

func (r *pgRiddleRepository) FindByOrderNumber(ctx context.Context, orderNumber int) (*model.Riddle, error) {
	query := `SELECT ` + riddleColumns + ` FROM riddles WHERE order_number = $1`
	rd, err := scanRiddle(r.db.QueryRowContext(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRiddleRepository.FindByOrderNumber: %w", err)
	}
	return rd, nil
}

func (r *pgRiddleRepository) List(ctx context.Context) ([]model.Riddle, error) {
	query := `SELECT ` + riddleColumns + ` FROM riddles ORDER BY order_number ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgRiddleRepository.List: %w", err)
	}
	defer rows.Close()

	riddles := []model.Riddle{}
	for rows.Next() {
		rd, err := scanRiddle(rows)
		if err != nil {
			return nil, fmt.Errorf("pgRiddleRepository.List scan: %w", err)
		}
		riddles = append(riddles, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgRiddleRepository.List rows: %w", err)
	}
	return riddles, nil
}

func (r *pgRiddleRepository) SetReferenceImage(ctx context.Context, id int64, url string) error {
	query := `UPDATE riddles SET reference_image_url = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, url, id)
	if err != nil {
		return fmt.Errorf("pgRiddleRepository.SetReferenceImage: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}

func (r *pgRiddleRepository) FirstActive(ctx context.Context) (*model.Riddle, error) {
	query := `SELECT ` + riddleColumns + ` FROM riddles WHERE is_active ORDER BY order_number ASC LIMIT 1`
	rd, err := scanRiddle(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRiddleRepository.FirstActive: %w", err)
	}
	return rd, nil
}

func (r *pgRiddleRepository) NextActiveAfter(ctx context.Context, tx *sql.Tx, orderNumber int) (*model.Riddle, error) {
	query := `SELECT ` + riddleColumns + ` FROM riddles
	          WHERE is_active AND order_number > $1
	          ORDER BY order_number ASC LIMIT 1`
	rd, err := scanRiddle(on(r.db, tx).QueryRowContext(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRiddleRepository.NextActiveAfter: %w", err)
	}
	return rd, nil
}

// Position returns the 1-based rank of orderNumber among active riddles and the active total.
func (r *pgRiddleRepository) Position(ctx context.Context, orderNumber int) (int, int, error) {
	query := `SELECT COUNT(*) FILTER (WHERE order_number <= $1), COUNT(*) FROM riddles WHERE is_active`
	var position, total int
	if err := r.db.QueryRowContext(ctx, query, orderNumber).Scan(&position, &total); err != nil {
		return 0, 0, fmt.Errorf("pgRiddleRepository.Position: %w", err)
	}
	return position, total, nil
}
