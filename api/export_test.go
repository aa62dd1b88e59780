package api

import (
	"bytes"
	"encoding/csv"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expenseguard/risk"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportRows() *sqlmock.Rows {
	created := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	return sqlmock.NewRows(expenseColumns).
		AddRow(1, 1, "150000.00", "Travel", "IndiGo", "Flight, return", "", "card", "pending", day(2024, 1, 10), created, created, nil).
		AddRow(2, 1, "250.50", "Food", "Cafe", "Lunch", "", "cash", "approved", day(2024, 1, 9), created, created, nil)
}

func TestExportHandler_ExportCSV(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(exportRows())

	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/export/csv", NewExportHandler().ExportCSV)

	req := httptest.NewRequest("GET", "/export/csv?start_date=2024-01-01&end_date=2024-01-31", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "expenses_2024-01-01_2024-01-31.csv")

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(w.Body.String(), "\xEF\xBB\xBF"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportCSVHeaders, records[0])
	assert.Equal(t, []string{"2024-01-10", "Travel", "Flight, return", "150000.00", "IndiGo", "card", "pending", "2024-01-10 09:30:00"}, records[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportHandler_ExportCSV_BadDate(t *testing.T) {
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/export/csv", NewExportHandler().ExportCSV)

	req := httptest.NewRequest("GET", "/export/csv?start_date=01-2024", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestExportHandler_ExportJSON(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(exportRows())

	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/export/json", NewExportHandler().ExportJSON)

	w := doJSON(router, "GET", "/export/json", "")

	assert.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total_count"])
	assert.InDelta(t, 150250.5, data["total_amount"], 0.001)
	assert.Equal(t, "₹1,50,250.5", data["total_formatted"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportHandler_ExportExcel(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(exportRows())

	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.GET("/export/excel", NewExportHandler().ExportExcel)

	w := doJSON(router, "GET", "/export/excel", "")
	require.Equal(t, 200, w.Code)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{expenseSheet, findingSheet}, f.GetSheetList())

	rows, err := f.GetRows(expenseSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4) // 表头 + 2 条 + 合计
	assert.Equal(t, "Travel", rows[1][2])
	assert.Equal(t, "合计", rows[3][0])

	findings, err := f.GetRows(findingSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(findings), 2)
	assert.Equal(t, string(risk.SeverityCritical), findings[1][0])
	assert.Equal(t, string(risk.TypeHighAmount), findings[1][1])
	require.NoError(t, mock.ExpectationsWereMet())
}
