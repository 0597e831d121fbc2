package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/pkg/config"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	GetTeacherProfile(ctx context.Context, userID string) (*models.TeacherProfile, error)
	UpsertTeacherProfile(ctx context.Context, profile *models.TeacherProfile) error
	AddTeacherLink(ctx context.Context, studentID, teacherID string) error
	BulkAddTeacherLinks(ctx context.Context, studentIDs, teacherIDs []string) error
	FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error)
	ListDetailsByIDs(ctx context.Context, ids []string) ([]models.UserDetail, error)
}

// UserService manages accounts, role profiles and teacher assignment.
type UserService struct {
	repo     userRepository
	cache    *CacheService
	audit    *AuditService
	cacheCfg config.CacheConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo userRepository, cache *CacheService, audit *AuditService, cacheCfg config.CacheConfig, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:     repo,
		cache:    cache,
		audit:    audit,
		cacheCfg: cacheCfg,
		validate: validator.New(),
		logger:   logger,
	}
}

func rosterCacheKey(userID string) string {
	return "roster:" + userID
}

// Create registers an account with its role variant. Duplicate emails are
// rejected before insert so the portal gets a readable message instead of a
// constraint violation.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest, actorID string) (*models.UserDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Email already registered")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "email lookup failed")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "password hashing failed")
	}

	user := &models.User{
		ID:           req.ID,
		Email:        email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create user failed")
	}

	if req.Role == models.RoleTeacher {
		profile := &models.TeacherProfile{
			UserID:      user.ID,
			Subjects:    req.Subjects,
			AllowInvite: req.AllowInvite == nil || *req.AllowInvite,
		}
		if profile.Subjects == nil {
			profile.Subjects = []string{}
		}
		if err := s.repo.UpsertTeacherProfile(ctx, profile); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create teacher profile failed")
		}
	}

	s.audit.Record(AuditEntry{
		UserID:     actorID,
		Action:     models.AuditActionUserCreate,
		Resource:   "user",
		ResourceID: user.ID,
		NewValues:  map[string]interface{}{"email": user.Email, "role": user.Role},
	})
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return s.repo.FindDetailByID(ctx, user.ID)
}

// Get returns a single account with its role variant.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load user failed")
	}
	return detail, nil
}

// List returns a filtered page of accounts.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list users failed")
	}
	if users == nil {
		users = []models.User{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListTeachers returns every teacher with its profile, for the portal's
// teacher directory.
func (s *UserService) ListTeachers(ctx context.Context) ([]models.UserDetail, error) {
	role := models.RoleTeacher
	users, _, err := s.repo.List(ctx, models.UserFilter{Role: &role, PageSize: 200, SortBy: "name", SortOrder: "ASC"})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list teachers failed")
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return s.repo.ListDetailsByIDs(ctx, ids)
}

// Update applies a partial update to an account and its teacher variant.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest, actorID string) (*models.UserDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load user failed")
	}

	changed := map[string]interface{}{}
	if req.Name != nil {
		user.Name = *req.Name
		changed["name"] = user.Name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if _, err := s.repo.FindByEmail(ctx, email); err == nil {
				return nil, appErrors.Clone(appErrors.ErrConflict, "Email already registered")
			} else if err != sql.ErrNoRows {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "email lookup failed")
			}
			user.Email = email
			changed["email"] = email
		}
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update user failed")
	}

	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "password hashing failed")
		}
		if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update password failed")
		}
		changed["password"] = "rotated"
	}

	if user.Role == models.RoleTeacher && (req.Subjects != nil || req.AllowInvite != nil) {
		profile, err := s.repo.GetTeacherProfile(ctx, id)
		if err != nil {
			if err != sql.ErrNoRows {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher profile failed")
			}
			profile = &models.TeacherProfile{UserID: id, Subjects: []string{}, AllowInvite: true}
		}
		if req.Subjects != nil {
			profile.Subjects = req.Subjects
			changed["subjects"] = req.Subjects
		}
		if req.AllowInvite != nil {
			profile.AllowInvite = *req.AllowInvite
			changed["allow_invite"] = *req.AllowInvite
		}
		if err := s.repo.UpsertTeacherProfile(ctx, profile); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update teacher profile failed")
		}
	}

	s.audit.Record(AuditEntry{
		UserID:     actorID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "user",
		ResourceID: id,
		NewValues:  changed,
	})
	return s.repo.FindDetailByID(ctx, id)
}

// Delete removes an account. Linked rows cascade in the database.
func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete user failed")
	}
	s.cache.Invalidate(ctx, rosterCacheKey(id))
	s.audit.Record(AuditEntry{
		UserID:     actorID,
		Action:     models.AuditActionUserDelete,
		Resource:   "user",
		ResourceID: id,
	})
	return nil
}

// BulkAssign maps every listed student to every listed teacher in one
// statement, then reloads the accounts named by student id. Ids that resolve
// to nothing, or to non-students, contribute no links; the lookup answers by
// id regardless, so the caller sees the post-state of every account it named
// that exists.
func (s *UserService) BulkAssign(ctx context.Context, req models.BulkAssignRequest, actorID string) ([]models.UserDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid data format")
	}

	if err := s.repo.BulkAddTeacherLinks(ctx, req.StudentIDs, req.TeacherIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk assign failed")
	}

	keys := make([]string, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		keys = append(keys, rosterCacheKey(id))
	}
	s.cache.Invalidate(ctx, keys...)

	s.audit.Record(AuditEntry{
		UserID:    actorID,
		Action:    models.AuditActionBulkAssign,
		Resource:  "user",
		NewValues: map[string]interface{}{"student_ids": req.StudentIDs, "teacher_ids": req.TeacherIDs},
	})
	s.logger.Info("bulk assignment applied",
		zap.Int("students", len(req.StudentIDs)),
		zap.Int("teachers", len(req.TeacherIDs)))

	return s.repo.ListDetailsByIDs(ctx, req.StudentIDs)
}

// Roster returns the teacher accounts linked to a student, cached briefly.
func (s *UserService) Roster(ctx context.Context, studentID string) ([]models.UserDetail, error) {
	key := rosterCacheKey(studentID)
	if s.cacheCfg.Enabled {
		var cached []models.UserDetail
		if s.cache.GetJSON(ctx, key, &cached) {
			return cached, nil
		}
	}

	detail, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if detail.Student == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "User is not a student")
	}

	teachers, err := s.repo.ListDetailsByIDs(ctx, detail.Student.TeacherIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load roster failed")
	}
	if s.cacheCfg.Enabled {
		s.cache.SetJSON(ctx, key, teachers, s.cacheCfg.RosterTTL)
	}
	return teachers, nil
}

// SeedAdmin ensures the bootstrap administrator exists. The fixed id keeps
// restarts idempotent.
func (s *UserService) SeedAdmin(ctx context.Context, seed config.AdminSeedConfig) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}
	if _, err := s.repo.FindByEmail(ctx, strings.ToLower(seed.Email)); err == nil {
		return nil
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("seed admin lookup: %w", err)
	}

	hash, err := HashPassword(seed.Password)
	if err != nil {
		return fmt.Errorf("seed admin hash: %w", err)
	}
	admin := &models.User{
		ID:           "admin-001",
		Email:        strings.ToLower(seed.Email),
		PasswordHash: hash,
		Name:         seed.Name,
		Role:         models.RoleAdmin,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("seed admin create: %w", err)
	}
	s.logger.Info("admin account seeded", zap.String("email", admin.Email))
	return nil
}
