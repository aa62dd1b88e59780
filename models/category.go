package models

import (
	"time"

	"expenseguard/risk"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseCategory 消费类别
type ExpenseCategory struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	Name         string           `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Emoji        string           `json:"emoji" gorm:"size:16"`
	Sort         int              `json:"sort" gorm:"default:0;index"`
	Color        string           `json:"color" gorm:"size:20;default:#64748b"`                                         // 颜色代码，如 #ef4444
	MonthlyLimit *decimal.Decimal `json:"monthly_limit" gorm:"type:decimal(12,2)" swaggertype:"string" example:"15000"` // 月度限额，NULL 表示不限
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `json:"-" gorm:"index"`
}

func (ExpenseCategory) TableName() string {
	return "expense_categories"
}

// ToRisk 转换为风险计算使用的类别配置
func (c ExpenseCategory) ToRisk() risk.CategoryConfig {
	return risk.CategoryConfig{
		Name:         c.Name,
		Emoji:        c.Emoji,
		MonthlyLimit: c.MonthlyLimit,
	}
}

// CategoriesToRisk 批量转换
func CategoriesToRisk(list []ExpenseCategory) []risk.CategoryConfig {
	out := make([]risk.CategoryConfig, 0, len(list))
	for _, c := range list {
		out = append(out, c.ToRisk())
	}
	return out
}
