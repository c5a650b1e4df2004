package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/wellness-api/internal/models"
)

type teacherResolverStub struct {
	byUserID map[string]*models.Teacher
}

func (s *teacherResolverStub) FindByUserID(_ context.Context, userID string) (*models.Teacher, error) {
	teacher, ok := s.byUserID[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

func rbacTestRouter(resolver TeacherResolver, claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	r.Use(ResolveTeacher(resolver))
	r.GET("/teachers/:teacherId/thing", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRBACSelfMatchesTeacherRecord(t *testing.T) {
	resolver := &teacherResolverStub{byUserID: map[string]*models.Teacher{
		"u-1": {ID: "t-1", UserID: "u-1", SchoolID: "s-1"},
	}}
	claims := &models.JWTClaims{UserID: "u-1", SchoolID: "s-1", Role: models.RoleTeacher}
	router := rbacTestRouter(resolver, claims, append(models.AdminRoles, "SELF")...)

	// The route targets the teacher record id, which differs from the login
	// user id carried in the claims.
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/teachers/t-1/thing", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// The login user id is not a valid target.
	w = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodGet, "/teachers/u-1/thing", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACSelfDeniesOtherTeachers(t *testing.T) {
	resolver := &teacherResolverStub{byUserID: map[string]*models.Teacher{
		"u-1": {ID: "t-1", UserID: "u-1", SchoolID: "s-1"},
	}}
	claims := &models.JWTClaims{UserID: "u-1", SchoolID: "s-1", Role: models.RoleTeacher}
	router := rbacTestRouter(resolver, claims, append(models.AdminRoles, "SELF")...)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/teachers/t-2/thing", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACSelfDeniesAccountWithoutRecord(t *testing.T) {
	resolver := &teacherResolverStub{byUserID: map[string]*models.Teacher{}}
	claims := &models.JWTClaims{UserID: "u-ghost", SchoolID: "s-1", Role: models.RoleTeacher}
	router := rbacTestRouter(resolver, claims, append(models.AdminRoles, "SELF")...)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/teachers/u-ghost/thing", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACAdminBypassesSelfCheck(t *testing.T) {
	resolver := &teacherResolverStub{byUserID: map[string]*models.Teacher{}}
	claims := &models.JWTClaims{UserID: "admin-1", SchoolID: "s-1", Role: models.RoleAdmin}
	router := rbacTestRouter(resolver, claims, append(models.AdminRoles, "SELF")...)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/teachers/t-2/thing", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACUnauthenticated(t *testing.T) {
	router := rbacTestRouter(&teacherResolverStub{}, nil, models.AdminRoles...)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/teachers/t-1/thing", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
