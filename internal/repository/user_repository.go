package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/attendly/attendly-api/internal/models"
)

// UserRepository provides database access for accounts, role profiles and the
// student-teacher link set.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, name, role, created_at, updated_at FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, name, role, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"email":      true,
		"name":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, email, password_hash, name, role, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user. The portal allows caller-supplied ids; one is
// generated only when absent.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at) VALUES (:id, :email, :password_hash, :name, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, email = :email, role = :role, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes the account. Returns sql.ErrNoRows when the id is unknown.
// Profile rows and teacher links go with it via ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetTeacherProfile returns the teacher variant row, or sql.ErrNoRows.
func (r *UserRepository) GetTeacherProfile(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	const query = `SELECT user_id, subjects, allow_invite FROM teacher_profiles WHERE user_id = $1`
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get teacher profile: %w", err)
	}
	return &profile, nil
}

// UpsertTeacherProfile writes the teacher variant row.
func (r *UserRepository) UpsertTeacherProfile(ctx context.Context, profile *models.TeacherProfile) error {
	const query = `INSERT INTO teacher_profiles (user_id, subjects, allow_invite) VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET subjects = EXCLUDED.subjects, allow_invite = EXCLUDED.allow_invite`
	if _, err := r.db.ExecContext(ctx, query, profile.UserID, profile.Subjects, profile.AllowInvite); err != nil {
		return fmt.Errorf("upsert teacher profile: %w", err)
	}
	return nil
}

// ListTeacherIDs returns the teacher link set for a student.
func (r *UserRepository) ListTeacherIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT teacher_id FROM student_teachers WHERE student_id = $1 ORDER BY teacher_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list teacher links: %w", err)
	}
	return ids, nil
}

// LinkExists reports whether the student is already linked to the teacher.
func (r *UserRepository) LinkExists(ctx context.Context, studentID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM student_teachers WHERE student_id = $1 AND teacher_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher link: %w", err)
	}
	return true, nil
}

// AddTeacherLink unions one teacher into the student's link set. Adding an
// already-present link is a no-op.
func (r *UserRepository) AddTeacherLink(ctx context.Context, studentID, teacherID string) error {
	const query = `INSERT INTO student_teachers (student_id, teacher_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, teacherID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add teacher link: %w", err)
	}
	return nil
}

// BulkAddTeacherLinks unions every given teacher into every given student's
// link set in one statement. Only STUDENT-role accounts are touched;
// duplicates are silently skipped.
func (r *UserRepository) BulkAddTeacherLinks(ctx context.Context, studentIDs, teacherIDs []string) error {
	const query = `INSERT INTO student_teachers (student_id, teacher_id, created_at)
        SELECT u.id, t.teacher_id, NOW()
        FROM users u
        CROSS JOIN unnest($2::text[]) AS t(teacher_id)
        WHERE u.id = ANY($1::text[]) AND u.role = 'STUDENT'
        ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(studentIDs), pq.Array(teacherIDs)); err != nil {
		return fmt.Errorf("bulk add teacher links: %w", err)
	}
	return nil
}

// FindDetailByID loads a user together with its role variant.
func (r *UserRepository) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.attachVariant(ctx, *user)
}

// ListDetailsByIDs loads users with variants for every id that resolves.
// Unknown ids are skipped, preserving input order for the rest.
func (r *UserRepository) ListDetailsByIDs(ctx context.Context, ids []string) ([]models.UserDetail, error) {
	if len(ids) == 0 {
		return []models.UserDetail{}, nil
	}
	const query = `SELECT id, email, password_hash, name, role, created_at, updated_at FROM users WHERE id = ANY($1::text[])`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}

	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	details := make([]models.UserDetail, 0, len(users))
	for _, id := range ids {
		user, ok := byID[id]
		if !ok {
			continue
		}
		detail, err := r.attachVariant(ctx, user)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

func (r *UserRepository) attachVariant(ctx context.Context, user models.User) (*models.UserDetail, error) {
	detail := &models.UserDetail{User: user}
	switch user.Role {
	case models.RoleTeacher:
		profile, err := r.GetTeacherProfile(ctx, user.ID)
		if err != nil {
			if err != sql.ErrNoRows {
				return nil, err
			}
			profile = &models.TeacherProfile{UserID: user.ID, Subjects: []string{}}
		}
		detail.Teacher = profile
	case models.RoleStudent:
		teacherIDs, err := r.ListTeacherIDs(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if teacherIDs == nil {
			teacherIDs = []string{}
		}
		detail.Student = &models.StudentProfile{TeacherIDs: teacherIDs}
	}
	return detail, nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
