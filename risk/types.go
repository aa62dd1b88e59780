// Package risk 消费记录的汇总统计与风险识别
//
// 包内所有函数均为纯函数：只读取传入的消费记录集合，不修改输入、不做 I/O，
// 每次调用都从头计算并返回新分配的结果。
package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense 风险计算使用的消费记录（只读）
type Expense struct {
	ID            string    `json:"id"`
	Amount        Amount    `json:"amount"`
	Category      string    `json:"category"`
	Vendor        string    `json:"vendor,omitempty"`
	Description   string    `json:"description,omitempty"`
	ReceiptURL    string    `json:"receipt_url,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Status        string    `json:"status,omitempty"`
	Date          time.Time `json:"date"`
	CreatedAt     time.Time `json:"created_at"`
}

// CategoryConfig 类别配置，MonthlyLimit 为空或 0 表示不设限额
type CategoryConfig struct {
	Name         string           `json:"name"`
	Emoji        string           `json:"emoji,omitempty"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit"`
}

// FindingType 风险类型
type FindingType string

const (
	TypeHighAmount        FindingType = "HIGH_AMOUNT"
	TypeDuplicate         FindingType = "DUPLICATE"
	TypeSuspiciousPattern FindingType = "SUSPICIOUS_PATTERN"
	TypeMissingField      FindingType = "MISSING_FIELD"
	TypeSpendingAnomaly   FindingType = "SPENDING_ANOMALY"
	TypeDataQuality       FindingType = "DATA_QUALITY"
)

// Severity 风险等级，low < medium < high < critical
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank 返回等级序号，未知等级为 0
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast 判断等级是否不低于 other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity 解析等级字符串，无法识别时返回 false
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	_, ok := severityRank[sev]
	return sev, ok
}

// Finding 单条风险提示，每次计算临时生成，不持久化
// RiskScore 只用于同一次计算内的排序，不同规则之间不可比较
type Finding struct {
	ID             string      `json:"id"`
	Type           FindingType `json:"type"`
	Expense        Expense     `json:"expense"`
	Severity       Severity    `json:"severity"`
	RiskScore      float64     `json:"risk_score"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation"`
	MissingFields  []string    `json:"missing_fields,omitempty"`
}

// CategoryAggregate 类别汇总
type CategoryAggregate struct {
	Category   string   `json:"category"`
	Emoji      string   `json:"emoji"`
	Total      float64  `json:"total"`
	Count      int      `json:"count"`
	Average    float64  `json:"average"`
	Share      float64  `json:"share"` // 占全部消费的百分比
	ExpenseIDs []string `json:"expense_ids"`
}

// MonthlyAggregate 月度汇总，Key 为 YYYY-MM
type MonthlyAggregate struct {
	Key     string  `json:"month_key"`
	Label   string  `json:"month"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// LimitRiskLevel 限额使用风险等级
type LimitRiskLevel string

const (
	LimitRiskNone     LimitRiskLevel = "none"
	LimitRiskLow      LimitRiskLevel = "low"
	LimitRiskMedium   LimitRiskLevel = "medium"
	LimitRiskHigh     LimitRiskLevel = "high"
	LimitRiskCritical LimitRiskLevel = "critical"
)

// LimitStatus 当月类别限额使用情况
type LimitStatus struct {
	Category    string         `json:"category"`
	Emoji       string         `json:"emoji,omitempty"`
	Spent       float64        `json:"spent"`
	Limit       *float64       `json:"limit"`
	Percentage  float64        `json:"percentage"`
	Remaining   *float64       `json:"remaining"`
	IsOverLimit bool           `json:"is_over_limit"`
	RiskLevel   LimitRiskLevel `json:"risk_level"`
}
