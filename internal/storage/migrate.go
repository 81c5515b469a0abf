package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

// ImageResolver turns an inline image into a stored reference. It may
// return an error; the model is then imported without an image.
type ImageResolver func(image, modelID string) (string, error)

// ImportStats reports how many rows an import touched
type ImportStats struct {
	Stones    int `json:"stones"`
	Models    int `json:"models"`
	StoneSets int `json:"stoneSets"`
}

// Migrator bulk-loads a snapshot into the database
type Migrator struct {
	db      *sql.DB
	resolve ImageResolver
}

// NewMigrator creates a Migrator. resolve may be nil.
func NewMigrator(db *sql.DB, resolve ImageResolver) *Migrator {
	return &Migrator{db: db, resolve: resolve}
}

// Import upserts every stone, model and stone set of snap by id inside one
// transaction. Stone lines of imported models and sets replace the stored
// ones.
func (m *Migrator) Import(ctx context.Context, snap models.Snapshot) (ImportStats, error) {
	var stats ImportStats

	err := withTx(ctx, m.db, func(tx *sql.Tx) error {
		for _, s := range snap.Stones {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO stones (id, name, count_per_gram) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET name = $2, count_per_gram = $3, updated_at = CURRENT_TIMESTAMP
			`, s.ID, s.Name, calculator.Finite(s.CountPerGram))
			if err != nil {
				return fmt.Errorf("import stone %s: %w", s.ID, err)
			}
			stats.Stones++
		}

		for _, model := range snap.Models {
			image := model.Image
			if image != "" && m.resolve != nil {
				resolved, err := m.resolve(image, model.ID)
				if err != nil {
					image = ""
				} else {
					image = resolved
				}
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO models (id, name, stock_code, category, image) VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET name = $2, stock_code = $3, category = $4, image = $5, updated_at = CURRENT_TIMESTAMP
			`, model.ID, model.Name, nullString(model.StockCode), nullString(model.Category), nullString(image))
			if err != nil {
				return fmt.Errorf("import model %s: %w", model.ID, err)
			}
			if len(model.Stones) > 0 {
				if err := replaceStoneLines(ctx, tx, "model_stones", "model_id", model.ID, model.Stones); err != nil {
					return err
				}
			}
			stats.Models++
		}

		for _, set := range snap.StoneSets {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO stone_sets (id, name, description) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET name = $2, description = $3, updated_at = CURRENT_TIMESTAMP
			`, set.ID, set.Name, nullString(set.Description))
			if err != nil {
				return fmt.Errorf("import stone set %s: %w", set.ID, err)
			}
			if len(set.Stones) > 0 {
				if err := replaceStoneLines(ctx, tx, "stone_set_items", "stone_set_id", set.ID, set.Stones); err != nil {
					return err
				}
			}
			stats.StoneSets++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}
