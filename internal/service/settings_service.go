package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/pkg/config"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Upsert(ctx context.Context, settings *models.Settings) error
}

const settingsCacheKey = "settings:global"

// UpdateSettingsRequest is the payload for partial settings updates.
type UpdateSettingsRequest struct {
	SchoolName       *string `json:"school_name"`
	AcademicYear     *string `json:"academic_year"`
	QRSessionMinutes *int    `json:"qr_session_minutes" validate:"omitempty,min=1,max=120"`
}

// SettingsService manages the single portal-wide settings row.
type SettingsService struct {
	repo     settingsRepository
	cache    *CacheService
	audit    *AuditService
	cacheCfg config.CacheConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(repo settingsRepository, cache *CacheService, audit *AuditService, cacheCfg config.CacheConfig, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:     repo,
		cache:    cache,
		audit:    audit,
		cacheCfg: cacheCfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// Get returns the settings row, materialising the default when none exists.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	if s.cacheCfg.Enabled {
		var cached models.Settings
		if s.cache.GetJSON(ctx, settingsCacheKey, &cached) {
			return &cached, nil
		}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load settings failed")
		}
		defaults := models.DefaultSettings()
		if err := s.repo.Upsert(ctx, &defaults); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create settings failed")
		}
		settings = &defaults
	}

	if s.cacheCfg.Enabled {
		s.cache.SetJSON(ctx, settingsCacheKey, settings, s.cacheCfg.SettingsTTL)
	}
	return settings, nil
}

// Update applies a partial update and invalidates the cached copy.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest, actorID string) (*models.Settings, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	changed := map[string]interface{}{}
	if req.SchoolName != nil {
		settings.SchoolName = *req.SchoolName
		changed["school_name"] = *req.SchoolName
	}
	if req.AcademicYear != nil {
		settings.AcademicYear = *req.AcademicYear
		changed["academic_year"] = *req.AcademicYear
	}
	if req.QRSessionMinutes != nil {
		settings.QRSessionMinutes = *req.QRSessionMinutes
		changed["qr_session_minutes"] = *req.QRSessionMinutes
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update settings failed")
	}
	s.cache.Invalidate(ctx, settingsCacheKey)

	s.audit.Record(AuditEntry{
		UserID:     actorID,
		Action:     models.AuditActionSettingsUpdate,
		Resource:   "settings",
		ResourceID: models.SettingsID,
		NewValues:  changed,
	})
	s.logger.Info("settings updated", zap.Any("changed", changed))
	return settings, nil
}
