package risk

import (
	"time"
)

// CategoryLimits 计算 at 所在自然月内各类别的限额使用情况
// 月份按 at 自身的时区取 YYYY-MM，与消费日期的 YYYY-MM 前缀匹配
func CategoryLimits(expenses []Expense, categories []CategoryConfig, at time.Time) []LimitStatus {
	month := MonthKey(at)
	current := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if MonthKey(e.Date) == month {
			current = append(current, e)
		}
	}
	spending := GroupByCategory(current)

	result := make([]LimitStatus, 0, len(categories))
	for _, c := range categories {
		spent := spending[c.Name].Total
		status := LimitStatus{
			Category:  c.Name,
			Emoji:     c.Emoji,
			Spent:     spent,
			RiskLevel: LimitRiskNone,
		}

		if c.MonthlyLimit != nil && c.MonthlyLimit.IsPositive() {
			limit := c.MonthlyLimit.InexactFloat64()
			remaining := limit - spent
			if remaining < 0 {
				remaining = 0
			}
			status.Limit = &limit
			status.Remaining = &remaining
			status.Percentage = spent / limit * 100
			status.IsOverLimit = spent > limit
			status.RiskLevel = limitRiskLevel(status.Percentage)
		}
		result = append(result, status)
	}
	return result
}

func limitRiskLevel(percentage float64) LimitRiskLevel {
	switch {
	case percentage > 100:
		return LimitRiskCritical
	case percentage > 80:
		return LimitRiskHigh
	case percentage > 60:
		return LimitRiskMedium
	default:
		return LimitRiskLow
	}
}
