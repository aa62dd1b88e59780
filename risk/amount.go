package risk

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount 金额，可能无效（缺失或无法解析）
// 无效金额在汇总时按 0 计算，且不会触发任何基于金额的规则
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount 由 decimal 构造有效金额
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromFloat 由 float64 构造有效金额
func AmountFromFloat(f float64) Amount {
	return Amount{Value: decimal.NewFromFloat(f), Valid: true}
}

// ParseAmount 解析字符串金额，失败时返回无效金额而不是错误
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}
	}
	return NewAmount(d)
}

// OrZero 返回金额数值，无效时为 0
func (a Amount) OrZero() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// Float64 返回 float64 数值，无效时为 0
func (a Amount) Float64() float64 {
	return a.OrZero().InexactFloat64()
}

// GreaterThan 仅当金额有效且大于 n 时返回 true
func (a Amount) GreaterThan(n int64) bool {
	return a.Valid && a.Value.GreaterThan(decimal.NewFromInt(n))
}

// String 实现 fmt.Stringer
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return a.Value.StringFixed(2)
}

// MarshalJSON 有效金额输出为数字，无效输出 null
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// UnmarshalJSON 接受数字或字符串；其它内容（null、非数字字符串、对象等）视为无效金额，不返回错误
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Amount{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*a = ParseAmount(s)
		return nil
	}
	*a = ParseAmount(string(data))
	return nil
}
