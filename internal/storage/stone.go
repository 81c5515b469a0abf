package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

// StoneRepository defines the interface for stone storage operations
type StoneRepository interface {
	List(ctx context.Context) ([]models.Stone, error)
	GetByID(ctx context.Context, id string) (*models.Stone, error)
	Create(ctx context.Context, stone *models.Stone) error
	Update(ctx context.Context, stone *models.Stone) error
	Delete(ctx context.Context, id string) error
}

// PostgresStoneRepository implements StoneRepository using PostgreSQL
type PostgresStoneRepository struct {
	db *sql.DB
}

// NewPostgresStoneRepository creates a new PostgresStoneRepository
func NewPostgresStoneRepository(db *sql.DB) *PostgresStoneRepository {
	return &PostgresStoneRepository{db: db}
}

// List returns all stones ordered by name
func (r *PostgresStoneRepository) List(ctx context.Context) ([]models.Stone, error) {
	query := `
		SELECT id, name, count_per_gram
		FROM stones
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stones: %w", err)
	}
	defer rows.Close()

	stones := []models.Stone{}
	for rows.Next() {
		var s models.Stone
		if err := rows.Scan(&s.ID, &s.Name, &s.CountPerGram); err != nil {
			return nil, fmt.Errorf("scan stone: %w", err)
		}
		s.CountPerGram = calculator.Finite(s.CountPerGram)
		stones = append(stones, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return stones, nil
}

// GetByID retrieves a stone by its ID
func (r *PostgresStoneRepository) GetByID(ctx context.Context, id string) (*models.Stone, error) {
	query := `
		SELECT id, name, count_per_gram
		FROM stones
		WHERE id = $1
	`

	s := &models.Stone{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.CountPerGram)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stone: %w", err)
	}
	s.CountPerGram = calculator.Finite(s.CountPerGram)

	return s, nil
}

// Create inserts a new stone, assigning an id when none is set
func (r *PostgresStoneRepository) Create(ctx context.Context, stone *models.Stone) error {
	if stone.ID == "" {
		stone.ID = uuid.New().String()
	}

	now := time.Now()
	query := `
		INSERT INTO stones (id, name, count_per_gram, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, stone.ID, stone.Name, stone.CountPerGram, now, now)
	if err != nil {
		return fmt.Errorf("create stone: %w", err)
	}
	return nil
}

// Update overwrites the name and factor of an existing stone
func (r *PostgresStoneRepository) Update(ctx context.Context, stone *models.Stone) error {
	query := `
		UPDATE stones
		SET name = $2, count_per_gram = $3, updated_at = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, stone.ID, stone.Name, stone.CountPerGram, time.Now())
	if err != nil {
		return fmt.Errorf("update stone: %w", err)
	}
	return checkAffected(res)
}

// Delete removes a stone. Model and set lines referencing it are removed by
// the foreign key cascade.
func (r *PostgresStoneRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stone: %w", err)
	}
	return checkAffected(res)
}
