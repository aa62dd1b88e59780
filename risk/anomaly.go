package risk

import (
	"fmt"
	"math"
)

// 异常检测参数
const (
	MinAnomalySample   = 5
	AnomalyThresholdSD = 2.5
	AnomalyHighSD      = 3.0
	MaxAnomalyScore    = 90
)

// DetectSpendingAnomalies 基于总体均值/标准差识别金额异常偏高的消费
// 样本只包含有效金额，少于 5 条时返回空
func DetectSpendingAnomalies(expenses []Expense) []Finding {
	sample := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Amount.Valid {
			sample = append(sample, e)
		}
	}
	if len(sample) < MinAnomalySample {
		return []Finding{}
	}

	mean, stdDev := meanStdDev(sample)
	// 全部金额相同时没有离群点
	if stdDev == 0 {
		return []Finding{}
	}
	threshold := mean + AnomalyThresholdSD*stdDev

	findings := make([]Finding, 0)
	for _, e := range sample {
		amount := e.Amount.Float64()
		if amount <= threshold {
			continue
		}
		z := (amount - mean) / stdDev
		severity := SeverityMedium
		if amount > mean+AnomalyHighSD*stdDev {
			severity = SeverityHigh
		}
		findings = append(findings, Finding{
			ID:             "anomaly-" + e.ID,
			Type:           TypeSpendingAnomaly,
			Expense:        e,
			Severity:       severity,
			RiskScore:      math.Min(MaxAnomalyScore, z*20),
			Message:        fmt.Sprintf("Unusual spending: %.1fσ above average", z),
			Recommendation: "Verify expense legitimacy",
		})
	}
	return findings
}

// meanStdDev 总体均值与总体标准差
func meanStdDev(expenses []Expense) (mean, stdDev float64) {
	n := float64(len(expenses))
	for _, e := range expenses {
		mean += e.Amount.Float64()
	}
	mean /= n

	var variance float64
	for _, e := range expenses {
		d := e.Amount.Float64() - mean
		variance += d * d
	}
	variance /= n
	return mean, math.Sqrt(variance)
}
