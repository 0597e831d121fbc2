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
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type mockUserRepo struct {
	users        map[string]*models.User
	byEmail      map[string]*models.User
	profiles     map[string]*models.TeacherProfile
	teacherLinks map[string][]string
	bulkStudents []string
	bulkTeachers []string
	created      []*models.User
	deleted      []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:        map[string]*models.User{},
		byEmail:      map[string]*models.User{},
		profiles:     map[string]*models.TeacherProfile{},
		teacherLinks: map[string][]string{},
	}
}

func (m *mockUserRepo) add(user *models.User) {
	m.users[user.ID] = user
	m.byEmail[user.Email] = user
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, user := range m.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "generated"
	}
	m.created = append(m.created, user)
	m.add(user)
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	m.add(user)
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	if user, ok := m.users[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) GetTeacherProfile(_ context.Context, userID string) (*models.TeacherProfile, error) {
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

func (m *mockUserRepo) UpsertTeacherProfile(_ context.Context, profile *models.TeacherProfile) error {
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *mockUserRepo) AddTeacherLink(_ context.Context, studentID, teacherID string) error {
	m.teacherLinks[studentID] = append(m.teacherLinks[studentID], teacherID)
	return nil
}

func (m *mockUserRepo) BulkAddTeacherLinks(_ context.Context, studentIDs, teacherIDs []string) error {
	m.bulkStudents = studentIDs
	m.bulkTeachers = teacherIDs
	for _, sid := range studentIDs {
		if user, ok := m.users[sid]; !ok || user.Role != models.RoleStudent {
			continue
		}
		m.teacherLinks[sid] = append(m.teacherLinks[sid], teacherIDs...)
	}
	return nil
}

func (m *mockUserRepo) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.UserDetail{User: *user}
	if user.Role == models.RoleStudent {
		detail.Student = &models.StudentProfile{TeacherIDs: m.teacherLinks[id]}
	}
	if user.Role == models.RoleTeacher {
		detail.Teacher = m.profiles[id]
	}
	return detail, nil
}

func (m *mockUserRepo) ListDetailsByIDs(ctx context.Context, ids []string) ([]models.UserDetail, error) {
	details := make([]models.UserDetail, 0, len(ids))
	for _, id := range ids {
		detail, err := m.FindDetailByID(ctx, id)
		if err != nil {
			continue
		}
		details = append(details, *detail)
	}
	return details, nil
}

func newTestUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, nil, nil, config.CacheConfig{}, zap.NewNop())
}

func TestUserServiceBulkAssign(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "s1", Email: "s1@school.test", Role: models.RoleStudent})
	repo.add(&models.User{ID: "s2", Email: "s2@school.test", Role: models.RoleStudent})
	svc := newTestUserService(repo)

	students, err := svc.BulkAssign(context.Background(), models.BulkAssignRequest{
		StudentIDs: []string{"s1", "s2"},
		TeacherIDs: []string{"t1", "t2"},
	}, "admin-001")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.ElementsMatch(t, []string{"t1", "t2"}, students[0].Student.TeacherIDs)
	assert.Equal(t, []string{"s1", "s2"}, repo.bulkStudents)
}

func TestUserServiceBulkAssignInvalidPayload(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())

	_, err := svc.BulkAssign(context.Background(), models.BulkAssignRequest{TeacherIDs: []string{"t1"}}, "admin-001")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "Invalid data format", appErr.Message)
}

func TestUserServiceBulkAssignUnknownStudentsSkipped(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "s1", Email: "s1@school.test", Role: models.RoleStudent})
	svc := newTestUserService(repo)

	// Unknown ids contribute no links but don't fail the call.
	students, err := svc.BulkAssign(context.Background(), models.BulkAssignRequest{
		StudentIDs: []string{"s1", "ghost"},
		TeacherIDs: []string{"t1"},
	}, "admin-001")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)
}

func TestUserServiceCreateTeacherWithProfile(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)

	detail, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "T1@School.test",
		Password: "secret1",
		Name:     "Teacher One",
		Role:     models.RoleTeacher,
		Subjects: []string{"Math"},
	}, "admin-001")
	require.NoError(t, err)
	assert.Equal(t, "t1@school.test", detail.Email)
	require.NotNil(t, detail.Teacher)
	assert.Equal(t, []string{"Math"}, []string(detail.Teacher.Subjects))
	assert.True(t, detail.Teacher.AllowInvite)
	assert.NotEqual(t, "secret1", repo.created[0].PasswordHash)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Email: "dup@school.test", Role: models.RoleStudent})
	svc := newTestUserService(repo)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "dup@school.test",
		Password: "secret1",
		Name:     "Someone",
		Role:     models.RoleStudent,
	}, "admin-001")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
}

func TestUserServiceDeleteMissing(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())

	err := svc.Delete(context.Background(), "ghost", "admin-001")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "User not found", appErr.Message)
}

func TestUserServiceSeedAdminIdempotent(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)
	seed := config.AdminSeedConfig{Email: "admin@school.test", Password: "ChangeMe123", Name: "Admin"}

	require.NoError(t, svc.SeedAdmin(context.Background(), seed))
	require.Len(t, repo.created, 1)
	assert.Equal(t, "admin-001", repo.created[0].ID)
	assert.Equal(t, models.RoleAdmin, repo.created[0].Role)

	require.NoError(t, svc.SeedAdmin(context.Background(), seed))
	assert.Len(t, repo.created, 1)
}
