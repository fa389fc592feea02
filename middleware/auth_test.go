package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexcart/storefront-api/auth"
	"github.com/nexcart/storefront-api/models"
)

func newProtectedRouter(requiredRole models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{ValidateToken}
	if requiredRole != "" {
		handlers = append(handlers, RequireRole(requiredRole))
	}
	handlers = append(handlers, func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		role, _ := c.Get("role")
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidateTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := auth.IssueJWT("usr_42", models.RoleUser)
	require.NoError(t, err)

	w := get(newProtectedRouter(""), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "usr_42")
}

func TestValidateTokenMissingHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	w := get(newProtectedRouter(""), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := auth.IssueJWT("usr_42", models.RoleUser)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "rotated-secret")
	w := get(newProtectedRouter(""), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateTokenExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	claims := jwt.MapClaims{
		"user_id": "usr_42",
		"role":    string(models.RoleUser),
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	w := get(newProtectedRouter(""), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	claims := jwt.MapClaims{
		"user_id": "usr_42",
		"role":    "superuser",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	w := get(newProtectedRouter(""), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	adminToken, err := auth.IssueJWT("usr_admin", models.RoleAdmin)
	require.NoError(t, err)
	userToken, err := auth.IssueJWT("usr_plain", models.RoleUser)
	require.NoError(t, err)

	r := newProtectedRouter(models.RoleAdmin)
	assert.Equal(t, http.StatusOK, get(r, adminToken).Code)
	assert.Equal(t, http.StatusForbidden, get(r, userToken).Code)
}
