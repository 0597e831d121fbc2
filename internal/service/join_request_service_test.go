package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type mockJoinRequestRepo struct {
	pending      []models.JoinRequest
	byID         map[string]*models.JoinRequest
	insertOK     bool
	resolveOK    bool
	created      *models.JoinRequest
	resolvedWith models.JoinRequestStatus
}

func (m *mockJoinRequestRepo) ListPendingByTeacher(_ context.Context, teacherID string) ([]models.JoinRequest, error) {
	return m.pending, nil
}

func (m *mockJoinRequestRepo) FindByID(_ context.Context, id string) (*models.JoinRequest, error) {
	request, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return request, nil
}

func (m *mockJoinRequestRepo) CreatePending(_ context.Context, request *models.JoinRequest) (bool, error) {
	if !m.insertOK {
		return false, nil
	}
	request.ID = "req-1"
	request.Status = models.JoinRequestPending
	m.created = request
	return true, nil
}

func (m *mockJoinRequestRepo) Resolve(_ context.Context, id string, status models.JoinRequestStatus) (bool, error) {
	if !m.resolveOK {
		return false, nil
	}
	m.resolvedWith = status
	return true, nil
}

type mockJoinRequestUsers struct {
	users  map[string]*models.User
	linked map[string]bool
	links  []string
}

func (m *mockJoinRequestUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockJoinRequestUsers) LinkExists(_ context.Context, studentID, teacherID string) (bool, error) {
	return m.linked[studentID+"/"+teacherID], nil
}

func (m *mockJoinRequestUsers) AddTeacherLink(_ context.Context, studentID, teacherID string) error {
	m.links = append(m.links, studentID+"/"+teacherID)
	return nil
}

func joinRequestFixtures() *mockJoinRequestUsers {
	return &mockJoinRequestUsers{
		users: map[string]*models.User{
			"s1": {ID: "s1", Name: "Student One", Role: models.RoleStudent},
			"t1": {ID: "t1", Name: "Teacher One", Role: models.RoleTeacher},
		},
		linked: map[string]bool{},
	}
}

func TestJoinRequestServiceSubmit(t *testing.T) {
	requests := &mockJoinRequestRepo{insertOK: true}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	request, err := svc.Submit(context.Background(), "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestPending, request.Status)
	assert.Equal(t, "Student One", request.StudentName)
	assert.Equal(t, "Teacher One", request.TeacherName)
}

func TestJoinRequestServiceSubmitTeacherMissing(t *testing.T) {
	requests := &mockJoinRequestRepo{insertOK: true}
	users := joinRequestFixtures()
	delete(users.users, "t1")
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "s1", "t1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "Teacher not found", appErr.Message)
}

func TestJoinRequestServiceSubmitAlreadyLinked(t *testing.T) {
	requests := &mockJoinRequestRepo{insertOK: true}
	users := joinRequestFixtures()
	users.linked["s1/t1"] = true
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "s1", "t1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "Already assigned to this teacher", appErr.Message)
}

func TestJoinRequestServiceSubmitAlreadyPending(t *testing.T) {
	requests := &mockJoinRequestRepo{insertOK: false}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "s1", "t1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "Request already pending", appErr.Message)
}

func TestJoinRequestServiceSubmitTeacherCheckedFirst(t *testing.T) {
	requests := &mockJoinRequestRepo{insertOK: true}
	users := joinRequestFixtures()
	delete(users.users, "s1")
	delete(users.users, "t1")
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "s1", "t1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "Teacher not found", appErr.Message)
}

func TestJoinRequestServiceSubmitStudentMissing(t *testing.T) {
	requests := &mockJoinRequestRepo{insertOK: true}
	users := joinRequestFixtures()
	delete(users.users, "s1")
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "s1", "t1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "User not found", appErr.Message)
}

func TestJoinRequestServiceRespondAcceptLinksStudent(t *testing.T) {
	requests := &mockJoinRequestRepo{
		resolveOK: true,
		byID: map[string]*models.JoinRequest{
			"req-1": {ID: "req-1", StudentID: "s1", TeacherID: "t1", Status: models.JoinRequestPending},
		},
	}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	request, err := svc.Respond(context.Background(), "req-1", "t1", models.JoinRequestAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestAccepted, request.Status)
	assert.Equal(t, []string{"s1/t1"}, users.links)
}

func TestJoinRequestServiceRespondRejectLeavesLinks(t *testing.T) {
	requests := &mockJoinRequestRepo{
		resolveOK: true,
		byID: map[string]*models.JoinRequest{
			"req-1": {ID: "req-1", StudentID: "s1", TeacherID: "t1", Status: models.JoinRequestPending},
		},
	}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	request, err := svc.Respond(context.Background(), "req-1", "t1", models.JoinRequestRejected)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestRejected, request.Status)
	assert.Empty(t, users.links)
}

func TestJoinRequestServiceRespondAlreadyResolved(t *testing.T) {
	requests := &mockJoinRequestRepo{
		resolveOK: false,
		byID: map[string]*models.JoinRequest{
			"req-1": {ID: "req-1", StudentID: "s1", TeacherID: "t1", Status: models.JoinRequestAccepted},
		},
	}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Respond(context.Background(), "req-1", "t1", models.JoinRequestRejected)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "Request already resolved", appErr.Message)
	assert.Empty(t, users.links)
}

func TestJoinRequestServiceRespondWrongTeacher(t *testing.T) {
	requests := &mockJoinRequestRepo{
		resolveOK: true,
		byID: map[string]*models.JoinRequest{
			"req-1": {ID: "req-1", StudentID: "s1", TeacherID: "t1", Status: models.JoinRequestPending},
		},
	}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Respond(context.Background(), "req-1", "t2", models.JoinRequestAccepted)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 403, appErr.Status)
}

func TestJoinRequestServiceRespondInvalidStatus(t *testing.T) {
	requests := &mockJoinRequestRepo{}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Respond(context.Background(), "req-1", "t1", models.JoinRequestPending)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
}

func TestJoinRequestServiceRespondNotFound(t *testing.T) {
	requests := &mockJoinRequestRepo{byID: map[string]*models.JoinRequest{}}
	users := joinRequestFixtures()
	svc := NewJoinRequestService(requests, users, nil, nil, nil, zap.NewNop())

	_, err := svc.Respond(context.Background(), "ghost", "t1", models.JoinRequestAccepted)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "Request not found", appErr.Message)
}
