package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stones (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		count_per_gram DECIMAL(10, 2) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS models (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		stock_code VARCHAR(100),
		category VARCHAR(100),
		image TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS model_stones (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		model_id UUID REFERENCES models(id) ON DELETE CASCADE,
		stone_id UUID REFERENCES stones(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stone_sets (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stone_set_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		stone_set_id UUID REFERENCES stone_sets(id) ON DELETE CASCADE,
		stone_id UUID REFERENCES stones(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username VARCHAR(100) UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS company_settings (
		id UUID PRIMARY KEY DEFAULT '00000000-0000-0000-0000-000000000000'::uuid,
		company_name VARCHAR(255) DEFAULT 'MercanSoft',
		legal_name VARCHAR(255),
		tax_office VARCHAR(100),
		tax_number VARCHAR(50),
		address TEXT,
		phone VARCHAR(50),
		email VARCHAR(100),
		website VARCHAR(255),
		logo TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`INSERT INTO company_settings (id, company_name)
		VALUES ('00000000-0000-0000-0000-000000000000'::uuid, 'MercanSoft')
		ON CONFLICT (id) DO NOTHING`,
}

// EnsureSchema creates the tables the repositories expect when they are
// missing. It never alters existing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
