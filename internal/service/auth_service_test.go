package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/pkg/config"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type mockAuthUsers struct {
	byEmail map[string]*models.User
}

func (m *mockAuthUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthUsers) FindDetailByID(_ context.Context, id string) (*models.UserDetail, error) {
	for _, user := range m.byEmail {
		if user.ID == id {
			return &models.UserDetail{User: *user}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "attendly-test"}
}

func newAuthFixtures(t *testing.T) *mockAuthUsers {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockAuthUsers{byEmail: map[string]*models.User{
		"s1@school.test": {ID: "s1", Email: "s1@school.test", PasswordHash: string(hash), Name: "Student One", Role: models.RoleStudent},
	}}
}

func TestAuthServiceLogin(t *testing.T) {
	svc := NewAuthService(newAuthFixtures(t), nil, testJWTConfig(), zap.NewNop())

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "s1@school.test",
		Password: "correct-horse",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.Equal(t, "s1", result.User.ID)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(newAuthFixtures(t), nil, testJWTConfig(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "s1@school.test",
		Password: "wrong",
		Role:     models.RoleStudent,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, 401, appErr.Status)
	assert.Equal(t, "Invalid credentials", appErr.Message)
}

func TestAuthServiceLoginRoleMismatch(t *testing.T) {
	svc := NewAuthService(newAuthFixtures(t), nil, testJWTConfig(), zap.NewNop())

	// Correct password for the wrong portal answers like a bad password.
	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "s1@school.test",
		Password: "correct-horse",
		Role:     models.RoleTeacher,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, 401, appErr.Status)
	assert.Equal(t, "Invalid credentials", appErr.Message)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newAuthFixtures(t), nil, testJWTConfig(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ghost@school.test",
		Password: "correct-horse",
		Role:     models.RoleStudent,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, 401, appErr.Status)
	assert.Equal(t, "Invalid credentials", appErr.Message)
}

func TestAuthServiceForgotPassword(t *testing.T) {
	svc := NewAuthService(newAuthFixtures(t), nil, testJWTConfig(), zap.NewNop())

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "s1@school.test"}))

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@school.test"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "No account found with this email address.", appErr.Message)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newAuthFixtures(t), nil, testJWTConfig(), zap.NewNop())

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestAuthServiceValidateTokenWrongSecret(t *testing.T) {
	issuer := NewAuthService(newAuthFixtures(t), nil, testJWTConfig(), zap.NewNop())
	verifier := NewAuthService(newAuthFixtures(t), nil, config.JWTConfig{Secret: "other", Expiration: time.Hour}, zap.NewNop())

	result, err := issuer.Login(context.Background(), models.LoginRequest{
		Email:    "s1@school.test",
		Password: "correct-horse",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(result.AccessToken)
	assert.Error(t, err)
}
