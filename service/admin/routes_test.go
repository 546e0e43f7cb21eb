package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.AdminUser{}))
	return db
}

func newTestRouter(db *gorm.DB) *mux.Router {
	cfg := &config.Config{JWTSecret: testJWTSecret, Currency: "usd"}
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	handler := NewHandler(db, cfg)
	handler.RegisterAuthRoutes(api)

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(utils.AuthMiddleware(testJWTSecret))
	handler.RegisterAdminRoutes(adminRouter)
	return router
}

func seedAdmin(t *testing.T, db *gorm.DB, username, password string, active bool) models.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.AdminUser{
		Username:     username,
		PasswordHash: string(hash),
		Email:        username + "@example.com",
		Role:         "admin",
		IsActive:     active,
	}
	require.NoError(t, db.Create(&admin).Error)
	return admin
}

func postJSON(t *testing.T, router *mux.Router, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router *mux.Router, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	return postJSON(t, router, "/api/admin/login", "", map[string]string{
		"username": username,
		"password": password,
	})
}

func TestLoginSuccess(t *testing.T) {
	db := setupTestDB(t)
	seedAdmin(t, db, "serenity", "correct-horse", true)
	router := newTestRouter(db)

	rec := login(t, router, "serenity", "correct-horse")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response struct {
		Success     bool   `json:"success"`
		AccessToken string `json:"access_token"`
		Admin       struct {
			Username string `json:"username"`
		} `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.NotEmpty(t, response.AccessToken)
	assert.Equal(t, "serenity", response.Admin.Username)

	// Password hash never leaks into the response.
	assert.NotContains(t, rec.Body.String(), "password")

	var updated models.AdminUser
	require.NoError(t, db.Where("username = ?", "serenity").First(&updated).Error)
	assert.False(t, updated.LastLogin.IsZero())
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	seedAdmin(t, db, "serenity", "correct-horse", true)
	router := newTestRouter(db)

	rec := login(t, router, "serenity", "battery-staple")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db)

	rec := login(t, router, "nobody", "whatever")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	db := setupTestDB(t)
	seedAdmin(t, db, "retired", "correct-horse", false)
	router := newTestRouter(db)

	rec := login(t, router, "retired", "correct-horse")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive")
}

func loginToken(t *testing.T, router *mux.Router, username, password string) string {
	t.Helper()
	rec := login(t, router, username, password)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response.AccessToken
}

func TestAdminRoutesRequireToken(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db)

	req := httptest.NewRequest("GET", "/api/admin/settings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest("GET", "/api/admin/settings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSettingsWithToken(t *testing.T) {
	db := setupTestDB(t)
	seedAdmin(t, db, "serenity", "correct-horse", true)
	router := newTestRouter(db)
	token := loginToken(t, router, "serenity", "correct-horse")

	req := httptest.NewRequest("GET", "/api/admin/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "usd", settings["currency"])
}

func TestCreateAdminUser(t *testing.T) {
	db := setupTestDB(t)
	seedAdmin(t, db, "serenity", "correct-horse", true)
	router := newTestRouter(db)
	token := loginToken(t, router, "serenity", "correct-horse")

	rec := postJSON(t, router, "/api/admin/admin-users", token, map[string]string{
		"username": "newadmin",
		"password": "s3cret-pass",
		"email":    "newadmin@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.AdminUser
	require.NoError(t, db.Where("username = ?", "newadmin").First(&created).Error)
	assert.True(t, created.IsActive)
	assert.Equal(t, "admin", created.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cret-pass")))

	// The new account can log in.
	second := login(t, router, "newadmin", "s3cret-pass")
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestCreateAdminUserRejectsDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	seedAdmin(t, db, "serenity", "correct-horse", true)
	router := newTestRouter(db)
	token := loginToken(t, router, "serenity", "correct-horse")

	rec := postJSON(t, router, "/api/admin/admin-users", token, map[string]string{
		"username": "serenity",
		"password": "whatever",
		"email":    "dup@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeactivatedAdminCannotLogIn(t *testing.T) {
	db := setupTestDB(t)
	seedAdmin(t, db, "serenity", "correct-horse", true)
	other := seedAdmin(t, db, "assistant", "other-pass", true)
	router := newTestRouter(db)
	token := loginToken(t, router, "serenity", "correct-horse")

	req := httptest.NewRequest("DELETE", "/api/admin/admin-users/2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.AdminUser
	require.NoError(t, db.First(&updated, other.ID).Error)
	assert.False(t, updated.IsActive)

	denied := login(t, router, "assistant", "other-pass")
	assert.Equal(t, http.StatusUnauthorized, denied.Code)
}
