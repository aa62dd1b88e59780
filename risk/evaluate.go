package risk

import "time"

// Evaluation 一次完整计算的结果
type Evaluation struct {
	EvaluatedAt     time.Time           `json:"evaluated_at"`
	ExpenseCount    int                 `json:"expense_count"`
	TotalAmount     float64             `json:"total_amount"`
	Categories      []CategoryAggregate `json:"categories"`
	Monthly         []MonthlyAggregate  `json:"monthly"`
	Risks           []Finding           `json:"risks"`
	Anomalies       []Finding           `json:"anomalies"`
	DataQuality     []Finding           `json:"data_quality"`
	Combined        []Finding           `json:"combined"`
	Limits          []LimitStatus       `json:"limits"`
	ComplianceScore int                 `json:"compliance_score"`
}

// Evaluate 对同一份数据快照执行全部计算
// Combined 依次为规则结果、统计异常、数据质量问题，合规分只统计规则结果
func Evaluate(expenses []Expense, categories []CategoryConfig, at time.Time) Evaluation {
	risks := DetectRisks(expenses)
	anomalies := DetectSpendingAnomalies(expenses)
	quality := DetectDataQuality(expenses)

	combined := make([]Finding, 0, len(risks)+len(anomalies)+len(quality))
	combined = append(combined, risks...)
	combined = append(combined, anomalies...)
	combined = append(combined, quality...)

	return Evaluation{
		EvaluatedAt:     at,
		ExpenseCount:    len(expenses),
		TotalAmount:     TotalAmount(expenses),
		Categories:      SortCategoryAggregates(GroupByCategory(expenses)),
		Monthly:         MonthlyTotals(expenses),
		Risks:           risks,
		Anomalies:       anomalies,
		DataQuality:     quality,
		Combined:        combined,
		Limits:          CategoryLimits(expenses, categories, at),
		ComplianceScore: ComplianceScore(expenses, risks),
	}
}

// CountBySeverity 按等级统计条数
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := map[Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// FilterBySeverity 返回等级不低于 min 的结果，保持原顺序
func FilterBySeverity(findings []Finding, min Severity) []Finding {
	out := make([]Finding, 0)
	for _, f := range findings {
		if f.Severity.AtLeast(min) {
			out = append(out, f)
		}
	}
	return out
}
