package auth

import (
	"bytes"
	"encoding/json"
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

	"github.com/nexcart/storefront-api/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Cart{}, &models.CartItem{}))
	return db
}

func newAuthRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", RegisterHandler(db))
	r.POST("/auth/login", LoginHandler(db))
	return r
}

func post(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesUserWithCart(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupTestDB(t)
	r := newAuthRouter(db)

	w := post(t, r, "/auth/register", RegisterRequest{
		Email: "jane@example.com", Password: "s3cret-pass", Name: "Jane",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password_hash", "hash must never leave the server")

	var user models.User
	require.NoError(t, db.Preload("Cart").Where("email = ?", "jane@example.com").First(&user).Error)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.PasswordHash)
	assert.Equal(t, user.ID, user.Cart.UserID, "registration provisions the cart")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupTestDB(t)
	r := newAuthRouter(db)

	req := RegisterRequest{Email: "jane@example.com", Password: "s3cret-pass", Name: "Jane"}
	require.Equal(t, http.StatusCreated, post(t, r, "/auth/register", req).Code)
	assert.Equal(t, http.StatusConflict, post(t, r, "/auth/register", req).Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	db := setupTestDB(t)
	r := newAuthRouter(db)

	w := post(t, r, "/auth/register", RegisterRequest{
		Email: "jane@example.com", Password: "short", Name: "Jane",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupTestDB(t)
	r := newAuthRouter(db)

	require.Equal(t, http.StatusCreated, post(t, r, "/auth/register", RegisterRequest{
		Email: "jane@example.com", Password: "s3cret-pass", Name: "Jane",
	}).Code)

	w := post(t, r, "/auth/login", LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	w = post(t, r, "/auth/login", LoginRequest{Email: "jane@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(t, r, "/auth/login", LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
