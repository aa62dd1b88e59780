package risk

import (
	"math"
	"strings"
)

// 合规分扣分规则
const (
	HighRiskPenalty   = 15
	MediumRiskPenalty = 8
	AnyRiskPenalty    = 2
	DescriptionBonus  = 10
)

// ComplianceScore 根据规则检查结果计算 0-100 的合规分，没有消费记录时为 100
// findings 应为 DetectRisks 的结果，不包含统计异常
//
// high/critical 与 medium 会同时被等级扣分和每条 2 分的通用扣分计入，保持现有行为
func ComplianceScore(expenses []Expense, findings []Finding) int {
	if len(expenses) == 0 {
		return 100
	}

	var highCount, mediumCount int
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical, SeverityHigh:
			highCount++
		case SeverityMedium:
			mediumCount++
		}
	}

	score := 100.0
	score -= float64(highCount * HighRiskPenalty)
	score -= float64(mediumCount * MediumRiskPenalty)
	score -= float64(len(findings) * AnyRiskPenalty)

	described := 0
	for _, e := range expenses {
		if strings.TrimSpace(e.Description) != "" {
			described++
		}
	}
	score += float64(described) / float64(len(expenses)) * DescriptionBonus

	return int(math.Max(0, math.Min(100, roundHalfUp(score))))
}

// roundHalfUp x.5 向正无穷取整
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
