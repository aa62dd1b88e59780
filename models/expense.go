package models

import (
	"strconv"
	"time"

	"expenseguard/risk"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 消费记录状态
const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

// Expense 消费记录模型
type Expense struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	UserID        uint            `json:"user_id" gorm:"index;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null" swaggertype:"string" example:"1250.5"`
	Category      string          `json:"category" gorm:"size:50;not null;index"`
	Vendor        string          `json:"vendor" gorm:"size:100"`
	Description   string          `json:"description" gorm:"size:500"`
	ReceiptURL    string          `json:"receipt_url" gorm:"size:500"`
	PaymentMethod string          `json:"payment_method" gorm:"size:30"`
	Status        string          `json:"status" gorm:"size:20;default:pending"`
	Date          time.Time       `json:"date" gorm:"type:date;not null;index"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`
	User          User            `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// ToRisk 转换为风险计算使用的记录
func (e Expense) ToRisk() risk.Expense {
	return risk.Expense{
		ID:            strconv.FormatUint(uint64(e.ID), 10),
		Amount:        risk.NewAmount(e.Amount),
		Category:      e.Category,
		Vendor:        e.Vendor,
		Description:   e.Description,
		ReceiptURL:    e.ReceiptURL,
		PaymentMethod: e.PaymentMethod,
		Status:        e.Status,
		Date:          e.Date,
		CreatedAt:     e.CreatedAt,
	}
}

// ExpensesToRisk 批量转换，保持顺序
func ExpensesToRisk(list []Expense) []risk.Expense {
	out := make([]risk.Expense, 0, len(list))
	for _, e := range list {
		out = append(out, e.ToRisk())
	}
	return out
}
