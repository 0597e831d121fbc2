package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/attendly/attendly-api/internal/models"
)

// SettingsRepository handles the single global settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the global settings row, or sql.ErrNoRows when it has never
// been written.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	const query = `SELECT id, school_name, academic_year, qr_session_minutes, updated_at FROM settings WHERE id = $1 LIMIT 1`
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query, models.SettingsID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &settings, nil
}

// Upsert writes the global settings row.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	settings.ID = models.SettingsID
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO settings (id, school_name, academic_year, qr_session_minutes, updated_at)
        VALUES (:id, :school_name, :academic_year, :qr_session_minutes, :updated_at)
        ON CONFLICT (id) DO UPDATE SET
            school_name = EXCLUDED.school_name,
            academic_year = EXCLUDED.academic_year,
            qr_session_minutes = EXCLUDED.qr_session_minutes,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
