package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expenseguard/models"
	"expenseguard/risk"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Snapshot 某个用户在某一时刻的消费记录与类别配置
type Snapshot struct {
	UserID     uint
	Expenses   []models.Expense
	Categories []models.ExpenseCategory
}

// RiskExpenses 转换为风险计算输入
func (s *Snapshot) RiskExpenses() []risk.Expense {
	return models.ExpensesToRisk(s.Expenses)
}

// RiskCategories 转换为类别配置
func (s *Snapshot) RiskCategories() []risk.CategoryConfig {
	return models.CategoriesToRisk(s.Categories)
}

// Report 风险报告，每次请求重新计算，ID 仅用于日志关联
type Report struct {
	ID     string `json:"id"`
	UserID uint   `json:"user_id"`
	risk.Evaluation
}

// RiskService 读取用户数据并执行风险计算
type RiskService struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewRiskService 创建风险服务
func NewRiskService(db *gorm.DB) *RiskService {
	return &RiskService{
		db:     db,
		logger: slog.Default().With("component", "risk"),
		now:    time.Now,
	}
}

// WithClock 替换时间来源
func (s *RiskService) WithClock(now func() time.Time) *RiskService {
	s.now = now
	return s
}

// Now 当前评估时刻
func (s *RiskService) Now() time.Time {
	return s.now()
}

// Load 并行读取用户的消费记录（按创建时间倒序）与类别配置
func (s *RiskService) Load(ctx context.Context, userID uint) (*Snapshot, error) {
	snap := &Snapshot{UserID: userID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&snap.Expenses).Error; err != nil {
			return fmt.Errorf("查询消费记录失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.db.WithContext(gctx).
			Order("sort ASC, id ASC").
			Find(&snap.Categories).Error; err != nil {
			return fmt.Errorf("查询类别失败: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Evaluate 对快照执行完整计算
func (s *RiskService) Evaluate(snap *Snapshot, at time.Time) *Report {
	report := &Report{
		ID:         uuid.NewString(),
		UserID:     snap.UserID,
		Evaluation: risk.Evaluate(snap.RiskExpenses(), snap.RiskCategories(), at),
	}

	counts := risk.CountBySeverity(report.Risks)
	s.logger.Info("risk evaluation finished",
		"report_id", report.ID,
		"user_id", snap.UserID,
		"expenses", report.ExpenseCount,
		"risks", len(report.Risks),
		"anomalies", len(report.Anomalies),
		"data_quality", len(report.DataQuality),
		"critical", counts[risk.SeverityCritical],
		"high", counts[risk.SeverityHigh],
		"compliance_score", report.ComplianceScore,
	)
	return report
}

// Report 读取数据并生成报告，at 为零值时使用当前时间
func (s *RiskService) Report(ctx context.Context, userID uint, at time.Time) (*Report, error) {
	if at.IsZero() {
		at = s.now()
	}
	snap, err := s.Load(ctx, userID)
	if err != nil {
		s.logger.Error("load snapshot failed", "user_id", userID, "error", err)
		return nil, err
	}
	return s.Evaluate(snap, at), nil
}

// Categories 读取类别配置
func (s *RiskService) Categories(ctx context.Context) ([]risk.CategoryConfig, error) {
	var list []models.ExpenseCategory
	if err := s.db.WithContext(ctx).Order("sort ASC, id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("查询类别失败: %w", err)
	}
	return models.CategoriesToRisk(list), nil
}
