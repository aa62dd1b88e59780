package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"expenseguard/config"
	"expenseguard/database"
	"expenseguard/middleware"
	"expenseguard/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var userColumns = []string{"id", "username", "password", "email", "status", "created_at", "updated_at", "deleted_at"}

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func setupTestConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Risk:   config.RiskConfig{AlertMinSeverity: "high"},
	}
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	t.Cleanup(func() { config.GlobalConfig = nil })
	return cfg
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthHandler_Register(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	// 用户名与邮箱均未占用
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("newuser").
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("test@example.com").
		WillReturnRows(sqlmock.NewRows([]string{}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/register", NewAuthHandler(cfg).Register)

	w := doJSON(router, "POST", "/register", `{"username":"newuser","password":"password123","email":"test@example.com"}`)

	assert.Equal(t, 200, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, float64(200), resp["code"])
	assert.Equal(t, "注册成功", resp["message"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, models.UserStatusActive, data["status"])
	assert.NotContains(t, data, "password")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Register_UsernameExists(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("existinguser").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "existinguser", "hash", "e@x.com", "active", time.Now(), time.Now(), nil))

	router := gin.New()
	router.POST("/register", NewAuthHandler(cfg).Register)

	w := doJSON(router, "POST", "/register", `{"username":"existinguser","password":"password123"}`)

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "用户名已存在", decodeResponse(t, w)["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	router := gin.New()
	router.POST("/register", NewAuthHandler(cfg).Register)

	w := doJSON(router, "POST", "/register", `{"username":"ab","password":"1"}`)
	assert.Equal(t, 400, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("loginuser", "loginuser").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "loginuser", string(hashed), "login@x.com", models.UserStatusActive, time.Now(), time.Now(), nil))

	router := gin.New()
	router.POST("/login", NewAuthHandler(cfg).Login)

	w := doJSON(router, "POST", "/login", `{"username":"loginuser","password":"password123"}`)

	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	claims, err := middleware.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "loginuser", claims.Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_Locked(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("locked", "locked").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "locked", string(hashed), "", models.UserStatusLocked, time.Now(), time.Now(), nil))

	router := gin.New()
	router.POST("/login", NewAuthHandler(cfg).Login)

	w := doJSON(router, "POST", "/login", `{"username":"locked","password":"password123"}`)
	assert.Equal(t, 403, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("loginuser", "loginuser").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "loginuser", string(hashed), "", models.UserStatusActive, time.Now(), time.Now(), nil))

	router := gin.New()
	router.POST("/login", NewAuthHandler(cfg).Login)

	w := doJSON(router, "POST", "/login", `{"username":"loginuser","password":"wrong"}`)
	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "用户名或密码错误", decodeResponse(t, w)["message"])
}

func TestAuthHandler_Login_UserNotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("nouser", "nouser").
		WillReturnRows(sqlmock.NewRows([]string{}))

	router := gin.New()
	router.POST("/login", NewAuthHandler(cfg).Login)

	w := doJSON(router, "POST", "/login", `{"username":"nouser","password":"any"}`)
	assert.Equal(t, 401, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_GetProfile(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(3, "alice", "hash", "a@x.com", "active", time.Now(), time.Now(), nil))

	router := gin.New()
	router.Use(setUserIDMiddleware(3))
	router.GET("/profile", NewAuthHandler(cfg).GetProfile)

	w := doJSON(router, "GET", "/profile", "")
	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["username"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("oldpass123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(3, "alice", string(hashed), "", "active", time.Now(), time.Now(), nil))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET `password`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.Use(setUserIDMiddleware(3))
	router.PUT("/password", NewAuthHandler(cfg).ChangePassword)

	w := doJSON(router, "PUT", "/password", `{"old_password":"oldpass123","new_password":"newpass456"}`)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "密码修改成功", decodeResponse(t, w)["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_ChangePassword_WrongOld(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupTestConfig(t)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("oldpass123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(3, "alice", string(hashed), "", "active", time.Now(), time.Now(), nil))

	router := gin.New()
	router.Use(setUserIDMiddleware(3))
	router.PUT("/password", NewAuthHandler(cfg).ChangePassword)

	w := doJSON(router, "PUT", "/password", `{"old_password":"nope","new_password":"newpass456"}`)
	assert.Equal(t, 401, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
