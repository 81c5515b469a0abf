package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/todmy/stoneweight/pkg/models"
)

// CompanyRepository reads and writes the singleton company settings row
type CompanyRepository interface {
	Get(ctx context.Context) (models.CompanySettings, error)
	Update(ctx context.Context, settings *models.CompanySettings) error
}

// PostgresCompanyRepository implements CompanyRepository using PostgreSQL
type PostgresCompanyRepository struct {
	db *sql.DB
}

// NewPostgresCompanyRepository creates a new PostgresCompanyRepository
func NewPostgresCompanyRepository(db *sql.DB) *PostgresCompanyRepository {
	return &PostgresCompanyRepository{db: db}
}

// Get returns the stored settings, or the defaults when the row is missing
func (r *PostgresCompanyRepository) Get(ctx context.Context) (models.CompanySettings, error) {
	query := `
		SELECT id, COALESCE(company_name, ''), COALESCE(legal_name, ''), COALESCE(tax_office, ''),
			COALESCE(tax_number, ''), COALESCE(address, ''), COALESCE(phone, ''),
			COALESCE(email, ''), COALESCE(website, ''), COALESCE(logo, '')
		FROM company_settings
		WHERE id = $1
	`

	var s models.CompanySettings
	err := r.db.QueryRowContext(ctx, query, models.CompanySettingsID).Scan(
		&s.ID,
		&s.CompanyName,
		&s.LegalName,
		&s.TaxOffice,
		&s.TaxNumber,
		&s.Address,
		&s.Phone,
		&s.Email,
		&s.Website,
		&s.Logo,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultCompanySettings(), nil
	}
	if err != nil {
		return models.CompanySettings{}, fmt.Errorf("get company settings: %w", err)
	}
	return s, nil
}

// Update upserts the singleton row. An empty company name falls back to the
// default name.
func (r *PostgresCompanyRepository) Update(ctx context.Context, settings *models.CompanySettings) error {
	settings.ID = models.CompanySettingsID
	if settings.CompanyName == "" {
		settings.CompanyName = models.DefaultCompanyName
	}

	query := `
		INSERT INTO company_settings (id, company_name, legal_name, tax_office, tax_number,
			address, phone, email, website, logo, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			legal_name = EXCLUDED.legal_name,
			tax_office = EXCLUDED.tax_office,
			tax_number = EXCLUDED.tax_number,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			website = EXCLUDED.website,
			logo = EXCLUDED.logo,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		settings.ID,
		settings.CompanyName,
		nullString(settings.LegalName),
		nullString(settings.TaxOffice),
		nullString(settings.TaxNumber),
		nullString(settings.Address),
		nullString(settings.Phone),
		nullString(settings.Email),
		nullString(settings.Website),
		nullString(settings.Logo),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update company settings: %w", err)
	}
	return nil
}
