package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly-api/internal/models"
)

type validatorMock struct {
	claims *models.JWTClaims
	err    error
}

func (m *validatorMock) ValidateToken(token string) (*models.JWTClaims, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func performRequest(t *testing.T, handlers []gin.HandlerFunc, header string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/protected/:id", chain...)

	req, err := http.NewRequest(http.MethodGet, "/protected/u1", nil)
	require.NoError(t, err)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateMissingHeader(t *testing.T) {
	w := performRequest(t, []gin.HandlerFunc{Authenticate(&validatorMock{})}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateRejectsNonBearer(t *testing.T) {
	w := performRequest(t, []gin.HandlerFunc{Authenticate(&validatorMock{})}, "Basic xyz")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	auth := Authenticate(&validatorMock{err: errors.New("expired")})
	w := performRequest(t, []gin.HandlerFunc{auth}, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticatePopulatesIdentity(t *testing.T) {
	auth := Authenticate(&validatorMock{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher, Name: "Teacher"}})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/protected/:id", auth, func(c *gin.Context) {
		role, id := CallerIdentity(c)
		assert.Equal(t, models.RoleTeacher, role)
		assert.Equal(t, "u1", id)
		c.Status(http.StatusOK)
	})
	req, err := http.NewRequest(http.MethodGet, "/protected/u1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	auth := Authenticate(&validatorMock{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}})
	w := performRequest(t, []gin.HandlerFunc{auth, RequireRoles("ADMIN")}, "Bearer tok")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	auth := Authenticate(&validatorMock{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}})
	w := performRequest(t, []gin.HandlerFunc{auth, RequireRoles("ADMIN", "TEACHER")}, "Bearer tok")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesSelfMatchesPathParam(t *testing.T) {
	auth := Authenticate(&validatorMock{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}})
	w := performRequest(t, []gin.HandlerFunc{auth, RequireRoles("ADMIN", "SELF")}, "Bearer tok")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesSelfRejectsOtherID(t *testing.T) {
	auth := Authenticate(&validatorMock{claims: &models.JWTClaims{UserID: "u2", Role: models.RoleStudent}})
	w := performRequest(t, []gin.HandlerFunc{auth, RequireRoles("ADMIN", "SELF")}, "Bearer tok")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
