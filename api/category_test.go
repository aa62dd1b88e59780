package api

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WithArgs("Travel").
		WillReturnRows(sqlmock.NewRows(categoryColumns))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expense_categories`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/categories", NewCategoryHandler().Create)

	w := doJSON(router, "POST", "/categories", `{"name":" Travel ","monthly_limit":"15000"}`)

	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Travel", data["name"])
	assert.Equal(t, "✈️", data["emoji"])
	assert.Equal(t, defaultCategoryColor, data["color"])
	assert.Equal(t, "15000", data["monthly_limit"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Create_Duplicate(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WithArgs("Food").
		WillReturnRows(foodCategoryRows(nil))

	router := gin.New()
	router.POST("/categories", NewCategoryHandler().Create)

	w := doJSON(router, "POST", "/categories", `{"name":"Food"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "类别名称已存在", decodeResponse(t, w)["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Create_NegativeLimit(t *testing.T) {
	setupTestConfig(t)

	router := gin.New()
	router.POST("/categories", NewCategoryHandler().Create)

	w := doJSON(router, "POST", "/categories", `{"name":"Food","monthly_limit":-5}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "月度限额不能为负数", decodeResponse(t, w)["message"])
}

func TestCategoryHandler_Update_ClearLimit(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WithArgs(1).
		WillReturnRows(foodCategoryRows("1000.00"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expense_categories` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WillReturnRows(foodCategoryRows(nil))

	router := gin.New()
	router.PUT("/categories/:id", NewCategoryHandler().Update)

	w := doJSON(router, "PUT", "/categories/1", `{"monthly_limit":0}`)

	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Nil(t, data["monthly_limit"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Update_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(categoryColumns))

	router := gin.New()
	router.PUT("/categories/:id", NewCategoryHandler().Update)

	w := doJSON(router, "PUT", "/categories/42", `{"name":"X"}`)
	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Delete(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(categoryColumns).
			AddRow(1, "Food", "🍽️", 10, "#ef4444", nil, time.Now(), time.Now(), nil))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expense_categories` SET `deleted_at`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.DELETE("/categories/:id", NewCategoryHandler().Delete)

	w := doJSON(router, "DELETE", "/categories/1", "")
	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeLimit(t *testing.T) {
	v, ok := normalizeLimit(nil)
	assert.True(t, ok)
	assert.Nil(t, v)

	zero := decimal.Zero
	v, ok = normalizeLimit(&zero)
	assert.True(t, ok)
	assert.Nil(t, v)

	neg := decimal.NewFromInt(-1)
	_, ok = normalizeLimit(&neg)
	assert.False(t, ok)

	d := decimal.RequireFromString("999.999")
	v, ok = normalizeLimit(&d)
	assert.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, "1000", v.String())
}
