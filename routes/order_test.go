package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/auth"
	"github.com/nexcart/storefront-api/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return db
}

func TestOrderFeedRequiresAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupTestDB(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupOrderRoutes(r, db)

	// Anonymous clients must not be able to stream order activity.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Neither may ordinary shoppers.
	userToken, err := auth.IssueJWT("usr_plain", models.RoleUser)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/ws/orders", nil)
	req.Header.Set("Authorization", userToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
