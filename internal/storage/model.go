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

// ModelRepository defines the interface for model storage operations
type ModelRepository interface {
	List(ctx context.Context) ([]models.Model, error)
	GetByID(ctx context.Context, id string) (*models.Model, error)
	Create(ctx context.Context, model *models.Model) error
	Update(ctx context.Context, model *models.Model) error
	SetImage(ctx context.Context, id, image string) error
	Delete(ctx context.Context, id string) error
}

// PostgresModelRepository implements ModelRepository using PostgreSQL
type PostgresModelRepository struct {
	db *sql.DB
}

// NewPostgresModelRepository creates a new PostgresModelRepository
func NewPostgresModelRepository(db *sql.DB) *PostgresModelRepository {
	return &PostgresModelRepository{db: db}
}

const modelSelect = `
	SELECT
		m.id,
		m.name,
		COALESCE(m.stock_code, ''),
		COALESCE(m.category, ''),
		COALESCE(m.image, ''),
		COALESCE(
			json_agg(
				json_build_object('stoneId', ms.stone_id, 'quantity', ms.quantity)
				ORDER BY ms.created_at, ms.id
			) FILTER (WHERE ms.stone_id IS NOT NULL),
			'[]'
		) AS stones
	FROM models m
	LEFT JOIN model_stones ms ON m.id = ms.model_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanModel(row rowScanner) (*models.Model, error) {
	m := &models.Model{}
	var stones []byte
	if err := row.Scan(&m.ID, &m.Name, &m.StockCode, &m.Category, &m.Image, &stones); err != nil {
		return nil, err
	}
	lines, err := decodeStoneLines(stones)
	if err != nil {
		return nil, err
	}
	m.Stones = lines
	return m, nil
}

// List returns all models with their stone lines, ordered by name
func (r *PostgresModelRepository) List(ctx context.Context) ([]models.Model, error) {
	rows, err := r.db.QueryContext(ctx, modelSelect+` GROUP BY m.id ORDER BY m.name`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	result := []models.Model{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		result = append(result, *m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// GetByID retrieves a model and its stone lines
func (r *PostgresModelRepository) GetByID(ctx context.Context, id string) (*models.Model, error) {
	m, err := scanModel(r.db.QueryRowContext(ctx, modelSelect+` WHERE m.id = $1 GROUP BY m.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

// Create inserts the model row and its stone lines in one transaction
func (r *PostgresModelRepository) Create(ctx context.Context, model *models.Model) error {
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if model.Stones == nil {
		model.Stones = []models.StoneQuantity{}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now()
		query := `
			INSERT INTO models (id, name, stock_code, category, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, query,
			model.ID,
			model.Name,
			nullString(model.StockCode),
			nullString(model.Category),
			nullString(model.Image),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("create model: %w", err)
		}

		return replaceStoneLines(ctx, tx, "model_stones", "model_id", model.ID, model.Stones)
	})
}

// Update overwrites the model row and replaces its stone lines
func (r *PostgresModelRepository) Update(ctx context.Context, model *models.Model) error {
	if model.Stones == nil {
		model.Stones = []models.StoneQuantity{}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE models
			SET name = $2, stock_code = $3, category = $4, image = $5, updated_at = $6
			WHERE id = $1
		`
		res, err := tx.ExecContext(ctx, query,
			model.ID,
			model.Name,
			nullString(model.StockCode),
			nullString(model.Category),
			nullString(model.Image),
			time.Now(),
		)
		if err != nil {
			return fmt.Errorf("update model: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}

		return replaceStoneLines(ctx, tx, "model_stones", "model_id", model.ID, model.Stones)
	})
}

// SetImage stores the image reference of a model
func (r *PostgresModelRepository) SetImage(ctx context.Context, id, image string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE models SET image = $2 WHERE id = $1`, id, nullString(image))
	if err != nil {
		return fmt.Errorf("set model image: %w", err)
	}
	return checkAffected(res)
}

// Delete removes a model; its stone lines go with it
func (r *PostgresModelRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	return checkAffected(res)
}
