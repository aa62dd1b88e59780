package risk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// 规则阈值
const (
	CriticalAmount      = 100000
	HighAmount          = 50000
	ReceiptRequiredOver = 5000
	DuplicateWindowDays = 3
)

var duplicateTolerance = decimal.RequireFromString("0.01")

// rule 单条规则，按输入顺序遍历消费记录并返回命中结果
type rule func(expenses []Expense) []Finding

// rules 固定的规则执行顺序，同分时按此顺序保持稳定
var rules = []rule{
	highAmountRule,
	duplicateRule,
	weekendBusinessRule,
	missingFieldRule,
}

// DetectRisks 对一个用户的全部消费记录执行规则检查，不含数据质量问题
// 结果按 RiskScore 降序排列，分数相同保持产生顺序
func DetectRisks(expenses []Expense) []Finding {
	findings := make([]Finding, 0)
	for _, r := range rules {
		findings = append(findings, r(expenses)...)
	}
	SortFindings(findings)
	return findings
}

// SortFindings 按 RiskScore 降序稳定排序（原地）
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RiskScore > findings[j].RiskScore
	})
}

func highAmountRule(expenses []Expense) []Finding {
	var out []Finding
	for _, e := range expenses {
		switch {
		case e.Amount.GreaterThan(CriticalAmount):
			out = append(out, Finding{
				ID:             "high-" + e.ID,
				Type:           TypeHighAmount,
				Expense:        e,
				Severity:       SeverityCritical,
				RiskScore:      95,
				Message:        "Critical: Very high amount transaction",
				Recommendation: "Immediate approval required",
			})
		case e.Amount.GreaterThan(HighAmount):
			out = append(out, Finding{
				ID:             "medium-" + e.ID,
				Type:           TypeHighAmount,
				Expense:        e,
				Severity:       SeverityHigh,
				RiskScore:      75,
				Message:        "High amount transaction requires review",
				Recommendation: "Manager approval recommended",
			})
		}
	}
	return out
}

// duplicateRule 同类别、金额相差小于 0.01、日期相差不超过 3 天视为疑似重复
// 先按类别分桶，桶内两两比较，匹配关系对称
func duplicateRule(expenses []Expense) []Finding {
	buckets := make(map[string][]int)
	for i, e := range expenses {
		if !e.Amount.Valid {
			continue
		}
		buckets[e.Category] = append(buckets[e.Category], i)
	}

	matches := make([]int, len(expenses))
	for _, idx := range buckets {
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				if isDuplicatePair(expenses[idx[a]], expenses[idx[b]]) {
					matches[idx[a]]++
					matches[idx[b]]++
				}
			}
		}
	}

	var out []Finding
	for i, e := range expenses {
		if matches[i] == 0 {
			continue
		}
		out = append(out, Finding{
			ID:             "dup-" + e.ID,
			Type:           TypeDuplicate,
			Expense:        e,
			Severity:       SeverityMedium,
			RiskScore:      60,
			Message:        fmt.Sprintf("Potential duplicate: %d similar transaction(s)", matches[i]),
			Recommendation: "Verify transaction authenticity",
		})
	}
	return out
}

// 没有日期的记录无法判断时间间隔，不参与重复匹配
func isDuplicatePair(a, b Expense) bool {
	if a.Date.IsZero() || b.Date.IsZero() {
		return false
	}
	if a.Category != b.Category {
		return false
	}
	if !a.Amount.Value.Sub(b.Amount.Value).Abs().LessThan(duplicateTolerance) {
		return false
	}
	return daysApart(a.Date, b.Date) <= DuplicateWindowDays
}

func weekendBusinessRule(expenses []Expense) []Finding {
	var out []Finding
	for _, e := range expenses {
		if e.Date.IsZero() || !isWeekend(e.Date) || !isBusinessCategory(e.Category) {
			continue
		}
		out = append(out, Finding{
			ID:             "weekend-" + e.ID,
			Type:           TypeSuspiciousPattern,
			Expense:        e,
			Severity:       SeverityLow,
			RiskScore:      30,
			Message:        "Business expense on weekend",
			Recommendation: "Verify business necessity",
		})
	}
	return out
}

func missingFieldRule(expenses []Expense) []Finding {
	var out []Finding
	for _, e := range expenses {
		missing := MissingFields(e)
		if len(missing) == 0 {
			continue
		}
		severity := SeverityLow
		for _, f := range missing {
			if f == "receipt" {
				severity = SeverityMedium
			}
		}
		out = append(out, Finding{
			ID:             "missing-" + e.ID,
			Type:           TypeMissingField,
			Expense:        e,
			Severity:       severity,
			RiskScore:      float64(15 * len(missing)),
			Message:        "Missing: " + strings.Join(missing, ", "),
			Recommendation: "Complete required information",
			MissingFields:  missing,
		})
	}
	return out
}

// MissingFields 返回缺失的字段：description（空白）、vendor、receipt（金额超过 5000 时必填）
func MissingFields(e Expense) []string {
	var missing []string
	if strings.TrimSpace(e.Description) == "" {
		missing = append(missing, "description")
	}
	if e.Vendor == "" {
		missing = append(missing, "vendor")
	}
	if e.Amount.GreaterThan(ReceiptRequiredOver) && e.ReceiptURL == "" {
		missing = append(missing, "receipt")
	}
	return missing
}

// DetectDataQuality 金额缺失或无法解析的记录，每条一个 DATA_QUALITY 提示
// 独立于规则检查，不计入合规分
func DetectDataQuality(expenses []Expense) []Finding {
	out := make([]Finding, 0)
	for _, e := range expenses {
		if e.Amount.Valid {
			continue
		}
		out = append(out, Finding{
			ID:             "quality-" + e.ID,
			Type:           TypeDataQuality,
			Expense:        e,
			Severity:       SeverityLow,
			RiskScore:      10,
			Message:        "Amount is missing or not a number",
			Recommendation: "Correct the amount so it can be included in totals",
		})
	}
	return out
}
