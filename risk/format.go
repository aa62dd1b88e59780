package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const monthKeyLayout = "2006-01"

// MonthKey 返回日期所在月份 YYYY-MM
func MonthKey(t time.Time) string {
	return t.Format(monthKeyLayout)
}

// MonthLabel 将 YYYY-MM 转为 "Jan 2024" 形式，无法解析时原样返回
func MonthLabel(key string) string {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}

// dateOnly 去掉时间部分，只保留日历日期
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysApart 两个日历日期相差的天数（绝对值）
func daysApart(a, b time.Time) int {
	diff := dateOnly(a).Sub(dateOnly(b)).Hours() / 24
	return int(math.Abs(math.Round(diff)))
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// FormatINR 以印度数字分组格式化卢比金额，例如 ₹1,50,000.5
func FormatINR(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "₹0"
	}
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	out := groupIndian(intPart)
	if frac != "" {
		out += "." + frac
	}
	return sign + "₹" + out
}

// groupIndian 最后三位一组，其余两位一组
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// DaysAgo 返回相对日期描述
func DaysAgo(date, now time.Time) string {
	days := int(math.Ceil(now.Sub(date).Hours() / 24))
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days <= 7:
		return fmt.Sprintf("%d days ago", days)
	case days <= 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	case days <= 365:
		return fmt.Sprintf("%d months ago", days/30)
	default:
		return fmt.Sprintf("%d years ago", days/365)
	}
}
