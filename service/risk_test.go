package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"expenseguard/risk"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	// 两个查询并行执行，顺序不确定
	mock.MatchExpectationsInOrder(false)
	return gormDB, mock
}

var (
	expenseColumns  = []string{"id", "user_id", "amount", "category", "vendor", "description", "receipt_url", "payment_method", "status", "date", "created_at", "updated_at", "deleted_at"}
	categoryColumns = []string{"id", "name", "emoji", "sort", "color", "monthly_limit", "created_at", "updated_at", "deleted_at"}
)

func TestRiskService_Report(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(expenseColumns).
			AddRow(2, 7, "60000.00", "Travel", "Air", "flight", "", "card", "pending", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), now, now, nil).
			AddRow(1, 7, "800.00", "Food", "Cafe", "lunch", "", "cash", "pending", time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), now, now, nil))
	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WillReturnRows(sqlmock.NewRows(categoryColumns).
			AddRow(1, "Food", "🍔", 10, "#ef4444", "1000.00", now, now, nil).
			AddRow(2, "Travel", "✈️", 20, "#3b82f6", nil, now, now, nil))

	svc := NewRiskService(db).WithClock(func() time.Time { return now })
	report, err := svc.Report(context.Background(), 7, time.Time{})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, uint(7), report.UserID)
	assert.Equal(t, now, report.EvaluatedAt)
	assert.Equal(t, 2, report.ExpenseCount)
	assert.InDelta(t, 60800, report.TotalAmount, 0.001)

	require.NotEmpty(t, report.Risks)
	assert.Equal(t, risk.TypeHighAmount, report.Risks[0].Type)
	assert.Equal(t, risk.SeverityHigh, report.Risks[0].Severity)

	require.Len(t, report.Limits, 2)
	for _, l := range report.Limits {
		if l.Category == "Food" {
			require.NotNil(t, l.Limit)
			assert.InDelta(t, 80, l.Percentage, 0.001)
			assert.Equal(t, risk.LimitRiskMedium, l.RiskLevel)
		}
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskService_Report_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(7).
		WillReturnError(errors.New("db down"))
	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WillReturnRows(sqlmock.NewRows(categoryColumns))

	_, err := NewRiskService(db).Report(context.Background(), 7, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "查询消费记录失败")
}

func TestRiskService_Report_EmptyUser(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(expenseColumns))
	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WillReturnRows(sqlmock.NewRows(categoryColumns))

	report, err := NewRiskService(db).Report(context.Background(), 9, time.Now())
	require.NoError(t, err)
	assert.Zero(t, report.ExpenseCount)
	assert.Empty(t, report.Risks)
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, 100, report.ComplianceScore)
}

func TestRiskService_Categories(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM `expense_categories`").
		WillReturnRows(sqlmock.NewRows(categoryColumns).
			AddRow(1, "Food", "🍔", 10, "#ef4444", "2500.50", now, now, nil))

	cats, err := NewRiskService(db).Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.NotNil(t, cats[0].MonthlyLimit)
	assert.Equal(t, "2500.5", cats[0].MonthlyLimit.String())
}
