package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpense_ToRisk(t *testing.T) {
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	e := Expense{
		ID:            42,
		Amount:        decimal.RequireFromString("1250.50"),
		Category:      "Food",
		Vendor:        "Cafe",
		Description:   "Team lunch",
		ReceiptURL:    "https://receipts.example.com/42",
		PaymentMethod: "card",
		Status:        ExpenseStatusPending,
		Date:          date,
	}

	r := e.ToRisk()
	assert.Equal(t, "42", r.ID)
	assert.True(t, r.Amount.Valid)
	assert.Equal(t, 1250.5, r.Amount.Float64())
	assert.Equal(t, "Food", r.Category)
	assert.Equal(t, "Cafe", r.Vendor)
	assert.Equal(t, "card", r.PaymentMethod)
	assert.Equal(t, date, r.Date)
}

func TestExpensesToRisk_KeepsOrder(t *testing.T) {
	list := []Expense{{ID: 3}, {ID: 1}, {ID: 2}}
	out := ExpensesToRisk(list)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"3", "1", "2"}, []string{out[0].ID, out[1].ID, out[2].ID})

	assert.Empty(t, ExpensesToRisk(nil))
}

func TestCategoriesToRisk(t *testing.T) {
	limit := decimal.NewFromInt(5000)
	out := CategoriesToRisk([]ExpenseCategory{
		{Name: "Food", Emoji: "🍽️", MonthlyLimit: &limit},
		{Name: "Other"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "Food", out[0].Name)
	require.NotNil(t, out[0].MonthlyLimit)
	assert.True(t, out[0].MonthlyLimit.Equal(limit))
	assert.Nil(t, out[1].MonthlyLimit)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "expenses", Expense{}.TableName())
	assert.Equal(t, "expense_categories", ExpenseCategory{}.TableName())
	assert.Equal(t, "users", User{}.TableName())
}
