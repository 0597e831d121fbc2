package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/pkg/config"
)

type mockSettingsRepo struct {
	row     *models.Settings
	upserts int
}

func (m *mockSettingsRepo) Get(_ context.Context) (*models.Settings, error) {
	if m.row == nil {
		return nil, sql.ErrNoRows
	}
	return m.row, nil
}

func (m *mockSettingsRepo) Upsert(_ context.Context, settings *models.Settings) error {
	m.upserts++
	copied := *settings
	m.row = &copied
	return nil
}

func TestSettingsServiceGetCreatesDefault(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, nil, nil, config.CacheConfig{}, zap.NewNop())

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SettingsID, settings.ID)
	assert.Equal(t, 1, repo.upserts)

	// The materialised default row is reused on the next read.
	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.upserts)
}

func TestSettingsServicePartialUpdate(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, nil, nil, config.CacheConfig{}, zap.NewNop())

	name := "Riverside High"
	settings, err := svc.Update(context.Background(), UpdateSettingsRequest{SchoolName: &name}, "admin-001")
	require.NoError(t, err)
	assert.Equal(t, "Riverside High", settings.SchoolName)

	defaults := models.DefaultSettings()
	assert.Equal(t, defaults.AcademicYear, settings.AcademicYear)
	assert.Equal(t, defaults.QRSessionMinutes, settings.QRSessionMinutes)
}

func TestSettingsServiceUpdateValidatesSessionWindow(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, nil, nil, config.CacheConfig{}, zap.NewNop())

	minutes := 0
	_, err := svc.Update(context.Background(), UpdateSettingsRequest{QRSessionMinutes: &minutes}, "admin-001")
	assert.Error(t, err)
}
