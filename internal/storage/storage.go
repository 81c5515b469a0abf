package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/todmy/stoneweight/pkg/models"
)

// ErrNotFound is returned when a row addressed by id does not exist
var ErrNotFound = errors.New("not found")

// withTx runs fn inside a transaction and commits when fn returns nil
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// replaceStoneLines deletes every line of owner in table and inserts lines.
// The list is replaced wholesale, never diffed.
func replaceStoneLines(ctx context.Context, tx *sql.Tx, table, ownerColumn, ownerID string, lines []models.StoneQuantity) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, ownerColumn), ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	if len(lines) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s, stone_id, quantity) VALUES ($1, $2, $3)`, table, ownerColumn,
	))
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx, ownerID, line.StoneID, line.Quantity); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// decodeStoneLines parses the json_agg column produced by the list queries
func decodeStoneLines(raw []byte) ([]models.StoneQuantity, error) {
	lines := []models.StoneQuantity{}
	if len(raw) == 0 {
		return lines, nil
	}
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("decode stone lines: %w", err)
	}
	if lines == nil {
		lines = []models.StoneQuantity{}
	}
	return lines, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
