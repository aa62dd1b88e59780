package risk

import (
	"time"
	"unicode/utf8"
)

// MaxDescriptionLength 描述最大长度
const MaxDescriptionLength = 500

// Validation 字段 -> 错误信息，为空表示校验通过
type Validation map[string]string

// IsValid 是否通过校验
func (v Validation) IsValid() bool {
	return len(v) == 0
}

// ValidateExpense 业务层面的消费记录校验：金额为正、类别必填、日期不晚于 now、
// 描述长度以及单笔金额不超过类别月度限额
func ValidateExpense(e Expense, categories []CategoryConfig, now time.Time) Validation {
	errs := Validation{}

	if !e.Amount.Valid || !e.Amount.Value.IsPositive() {
		errs["amount"] = "Amount must be greater than 0"
	}

	if e.Category == "" {
		errs["category"] = "Category is required"
	}

	if e.Date.IsZero() {
		errs["date"] = "Date is required"
	} else if dateOnly(e.Date).After(dateOnly(now)) {
		errs["date"] = "Date cannot be in the future"
	}

	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		errs["description"] = "Description cannot exceed 500 characters"
	}

	for _, c := range categories {
		if c.Name != e.Category || c.MonthlyLimit == nil || !c.MonthlyLimit.IsPositive() {
			continue
		}
		if e.Amount.Valid && e.Amount.Value.GreaterThan(*c.MonthlyLimit) {
			errs["amount"] = "Amount exceeds monthly limit of " + FormatINR(c.MonthlyLimit.InexactFloat64())
		}
		break
	}

	return errs
}
