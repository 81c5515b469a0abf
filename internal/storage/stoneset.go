package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/stoneweight/pkg/models"
)

// StoneSetRepository defines the interface for stone set storage operations
type StoneSetRepository interface {
	List(ctx context.Context) ([]models.StoneSet, error)
	GetByID(ctx context.Context, id string) (*models.StoneSet, error)
	Create(ctx context.Context, set *models.StoneSet) error
	Update(ctx context.Context, set *models.StoneSet) error
	Delete(ctx context.Context, id string) error
}

// PostgresStoneSetRepository implements StoneSetRepository using PostgreSQL
type PostgresStoneSetRepository struct {
	db *sql.DB
}

// NewPostgresStoneSetRepository creates a new PostgresStoneSetRepository
func NewPostgresStoneSetRepository(db *sql.DB) *PostgresStoneSetRepository {
	return &PostgresStoneSetRepository{db: db}
}

const stoneSetSelect = `
	SELECT
		ss.id,
		ss.name,
		COALESCE(ss.description, ''),
		COALESCE(
			json_agg(
				json_build_object('stoneId', ssi.stone_id, 'quantity', ssi.quantity)
				ORDER BY ssi.created_at, ssi.id
			) FILTER (WHERE ssi.stone_id IS NOT NULL),
			'[]'
		) AS stones
	FROM stone_sets ss
	LEFT JOIN stone_set_items ssi ON ss.id = ssi.stone_set_id
`

func scanStoneSet(row rowScanner) (*models.StoneSet, error) {
	s := &models.StoneSet{}
	var stones []byte
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &stones); err != nil {
		return nil, err
	}
	lines, err := decodeStoneLines(stones)
	if err != nil {
		return nil, err
	}
	s.Stones = lines
	return s, nil
}

// List returns all stone sets ordered by name
func (r *PostgresStoneSetRepository) List(ctx context.Context) ([]models.StoneSet, error) {
	rows, err := r.db.QueryContext(ctx, stoneSetSelect+` GROUP BY ss.id ORDER BY ss.name`)
	if err != nil {
		return nil, fmt.Errorf("list stone sets: %w", err)
	}
	defer rows.Close()

	sets := []models.StoneSet{}
	for rows.Next() {
		s, err := scanStoneSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stone set: %w", err)
		}
		sets = append(sets, *s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

// GetByID retrieves a stone set and its lines
func (r *PostgresStoneSetRepository) GetByID(ctx context.Context, id string) (*models.StoneSet, error) {
	s, err := scanStoneSet(r.db.QueryRowContext(ctx, stoneSetSelect+` WHERE ss.id = $1 GROUP BY ss.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stone set: %w", err)
	}
	return s, nil
}

// Create inserts the set and its lines in one transaction
func (r *PostgresStoneSetRepository) Create(ctx context.Context, set *models.StoneSet) error {
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	if set.Stones == nil {
		set.Stones = []models.StoneQuantity{}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now()
		query := `
			INSERT INTO stone_sets (id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, set.ID, set.Name, nullString(set.Description), now, now); err != nil {
			return fmt.Errorf("create stone set: %w", err)
		}

		return replaceStoneLines(ctx, tx, "stone_set_items", "stone_set_id", set.ID, set.Stones)
	})
}

// Update overwrites the set row and replaces its lines
func (r *PostgresStoneSetRepository) Update(ctx context.Context, set *models.StoneSet) error {
	if set.Stones == nil {
		set.Stones = []models.StoneQuantity{}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE stone_sets
			SET name = $2, description = $3, updated_at = $4
			WHERE id = $1
		`
		res, err := tx.ExecContext(ctx, query, set.ID, set.Name, nullString(set.Description), time.Now())
		if err != nil {
			return fmt.Errorf("update stone set: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}

		return replaceStoneLines(ctx, tx, "stone_set_items", "stone_set_id", set.ID, set.Stones)
	})
}

// Delete removes a stone set and its lines
func (r *PostgresStoneSetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stone_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stone set: %w", err)
	}
	return checkAffected(res)
}
