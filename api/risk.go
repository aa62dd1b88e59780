package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"expenseguard/config"
	"expenseguard/database"
	"expenseguard/middleware"
	"expenseguard/models"
	"expenseguard/risk"
	"expenseguard/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// maxEvaluateExpenses 无状态评估单次最多接受的记录数
const maxEvaluateExpenses = 5000

// RiskHandler 风险分析处理器，每次请求基于当前数据重新计算
type RiskHandler struct {
	cfg    *config.Config
	svc    *service.RiskService
	mailer *service.EmailService
}

// NewRiskHandler 创建风险分析处理器
func NewRiskHandler(cfg *config.Config) *RiskHandler {
	return &RiskHandler{
		cfg:    cfg,
		svc:    service.NewRiskService(database.DB),
		mailer: service.NewEmailService(&cfg.Email),
	}
}

// parseAt 解析 at 参数（YYYY-MM-DD），为空时返回零值
func parseAt(c *gin.Context) (time.Time, bool) {
	v := c.Query("at")
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		BadRequest(c, "at 格式错误，应为: 2006-01-02")
		return time.Time{}, false
	}
	return t, true
}

// report 生成当前用户的报告，失败时已写响应
func (h *RiskHandler) report(c *gin.Context) (*service.Report, bool) {
	at, ok := parseAt(c)
	if !ok {
		return nil, false
	}
	report, err := h.svc.Report(c.Request.Context(), middleware.GetCurrentUserID(c), at)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "风险分析失败"))
		return nil, false
	}
	return report, true
}

// GetReport 完整风险报告
// @Summary 风险报告
// @Description 汇总、按类别/月份统计、规则风险、统计异常、类别限额与合规分
// @Tags 风险分析
// @Produce json
// @Security BearerAuth
// @Param at query string false "评估日期，决定限额统计的月份 (2024-01-31)，默认今天"
// @Success 200 {object} Response{data=service.Report} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/risk/report [get]
func (h *RiskHandler) GetReport(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	Success(c, report)
}

// FindingsResponse 风险提示列表
type FindingsResponse struct {
	Total    int                   `json:"total"`
	Counts   map[risk.Severity]int `json:"counts"`
	Findings []risk.Finding        `json:"findings"`
}

// GetFindings 风险提示列表
// @Summary 风险提示
// @Description 规则检测结果（含统计异常），按风险分降序；可按最低等级和类型筛选
// @Tags 风险分析
// @Produce json
// @Security BearerAuth
// @Param min_severity query string false "最低等级" Enums(low,medium,high,critical)
// @Param type query string false "类型" Enums(HIGH_AMOUNT,DUPLICATE,SUSPICIOUS_PATTERN,MISSING_FIELD,SPENDING_ANOMALY,DATA_QUALITY)
// @Success 200 {object} Response{data=FindingsResponse} "获取成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/risk/findings [get]
func (h *RiskHandler) GetFindings(c *gin.Context) {
	minSeverity := risk.SeverityLow
	if v := c.Query("min_severity"); v != "" {
		sev, ok := risk.ParseSeverity(strings.ToLower(v))
		if !ok {
			BadRequest(c, "无效的等级: "+v)
			return
		}
		minSeverity = sev
	}

	report, ok := h.report(c)
	if !ok {
		return
	}

	findings := risk.FilterBySeverity(report.Combined, minSeverity)
	if t := c.Query("type"); t != "" {
		filtered := make([]risk.Finding, 0, len(findings))
		for _, f := range findings {
			if strings.EqualFold(string(f.Type), t) {
				filtered = append(filtered, f)
			}
		}
		findings = filtered
	}

	Success(c, FindingsResponse{
		Total:    len(findings),
		Counts:   risk.CountBySeverity(findings),
		Findings: findings,
	})
}

// GetAnomalies 统计异常
// @Summary 消费异常
// @Description 高于均值 2.5 个标准差的消费，少于 5 条有效记录时为空
// @Tags 风险分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]risk.Finding} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/risk/anomalies [get]
func (h *RiskHandler) GetAnomalies(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	Success(c, report.Anomalies)
}

// GetLimits 类别限额使用情况
// @Summary 类别限额
// @Description at 所在自然月内各类别的消费与限额对比
// @Tags 风险分析
// @Produce json
// @Security BearerAuth
// @Param at query string false "评估日期 (2024-01-31)，默认今天"
// @Success 200 {object} Response{data=[]risk.LimitStatus} "获取成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/risk/limits [get]
func (h *RiskHandler) GetLimits(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	Success(c, report.Limits)
}

// ComplianceResponse 合规分
type ComplianceResponse struct {
	Score        int                   `json:"score"`
	ExpenseCount int                   `json:"expense_count"`
	Counts       map[risk.Severity]int `json:"counts"`
}

// GetCompliance 合规分
// @Summary 合规分
// @Description 0-100 的合规分，只统计规则检测结果
// @Tags 风险分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=ComplianceResponse} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/risk/compliance [get]
func (h *RiskHandler) GetCompliance(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	Success(c, ComplianceResponse{
		Score:        report.ComplianceScore,
		ExpenseCount: report.ExpenseCount,
		Counts:       risk.CountBySeverity(report.Risks),
	})
}

// EvaluateExpense 无状态评估的单条记录，金额可为数字或字符串
type EvaluateExpense struct {
	ID            string      `json:"id" example:"e1"`
	Amount        risk.Amount `json:"amount" swaggertype:"number" example:"1200"`
	Category      string      `json:"category" example:"Food"`
	Vendor        string      `json:"vendor"`
	Description   string      `json:"description"`
	ReceiptURL    string      `json:"receipt_url"`
	PaymentMethod string      `json:"payment_method"`
	Status        string      `json:"status"`
	Date          string      `json:"date" example:"2024-01-15"`
}

// EvaluateCategory 无状态评估的类别配置
type EvaluateCategory struct {
	Name         string           `json:"name" binding:"required"`
	Emoji        string           `json:"emoji"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit" swaggertype:"number"`
}

// EvaluateRequest 无状态评估请求；categories 为空时使用系统类别配置
type EvaluateRequest struct {
	Expenses   []EvaluateExpense  `json:"expenses" binding:"dive"`
	Categories []EvaluateCategory `json:"categories" binding:"dive"`
	At         string             `json:"at" example:"2024-01-31"`
}

// parseEvaluateDate 接受 YYYY-MM-DD 或 RFC3339
func parseEvaluateDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (r *EvaluateRequest) toRisk() ([]risk.Expense, error) {
	out := make([]risk.Expense, 0, len(r.Expenses))
	for i, in := range r.Expenses {
		id := in.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		var date time.Time
		if in.Date != "" {
			d, err := parseEvaluateDate(in.Date)
			if err != nil {
				return nil, fmt.Errorf("第 %d 条记录日期格式错误: %s", i+1, in.Date)
			}
			date = d
		}
		out = append(out, risk.Expense{
			ID:            id,
			Amount:        in.Amount,
			Category:      in.Category,
			Vendor:        in.Vendor,
			Description:   in.Description,
			ReceiptURL:    in.ReceiptURL,
			PaymentMethod: in.PaymentMethod,
			Status:        in.Status,
			Date:          date,
		})
	}
	return out, nil
}

// Evaluate 无状态评估
// @Summary 无状态评估
// @Description 对提交的消费记录执行完整计算，不读写数据库中的消费记录。无法解析的金额按 0 汇总并标记为数据质量问题
// @Tags 风险分析
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EvaluateRequest true "待评估数据"
// @Success 200 {object} Response{data=risk.Evaluation} "评估成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/risk/evaluate [post]
func (h *RiskHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if len(req.Expenses) > maxEvaluateExpenses {
		BadRequest(c, fmt.Sprintf("单次最多评估 %d 条记录", maxEvaluateExpenses))
		return
	}

	expenses, err := req.toRisk()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	at := h.svc.Now()
	if req.At != "" {
		t, err := parseEvaluateDate(req.At)
		if err != nil {
			BadRequest(c, "at 格式错误，应为: 2006-01-02")
			return
		}
		at = t
	}

	var cats []risk.CategoryConfig
	if len(req.Categories) > 0 {
		cats = make([]risk.CategoryConfig, 0, len(req.Categories))
		for _, in := range req.Categories {
			cats = append(cats, risk.CategoryConfig{Name: in.Name, Emoji: in.Emoji, MonthlyLimit: in.MonthlyLimit})
		}
	} else {
		cats, err = h.svc.Categories(c.Request.Context())
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询类别失败"))
			return
		}
	}

	Success(c, risk.Evaluate(expenses, cats, at))
}

// AlertResponse 提醒发送结果
type AlertResponse struct {
	Sent        int           `json:"sent"`
	MinSeverity risk.Severity `json:"min_severity"`
	ReportID    string        `json:"report_id"`
}

// SendAlert 发送风险摘要邮件
// @Summary 发送风险提醒
// @Description 将不低于配置等级（默认 high）的风险提示发送到当前用户邮箱；没有需要提醒的条目时不发送
// @Tags 风险分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=AlertResponse} "处理完成"
// @Failure 400 {object} Response "未设置邮箱"
// @Failure 401 {object} Response "未授权"
// @Failure 503 {object} Response "提醒或邮件服务未启用"
// @Router /api/v1/risk/alert [post]
func (h *RiskHandler) SendAlert(c *gin.Context) {
	if !h.cfg.Risk.AlertEnabled {
		ServiceUnavailable(c, "风险提醒未启用")
		return
	}
	minSeverity, ok := risk.ParseSeverity(h.cfg.Risk.AlertMinSeverity)
	if !ok {
		minSeverity = risk.SeverityHigh
	}

	var user models.User
	if err := database.DB.First(&user, middleware.GetCurrentUserID(c)).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	report, ok := h.report(c)
	if !ok {
		return
	}

	sent, err := h.mailer.SendRiskDigest(user.Email, user.Username, report, minSeverity)
	switch {
	case errors.Is(err, service.ErrEmailDisabled):
		ServiceUnavailable(c, err.Error())
		return
	case errors.Is(err, service.ErrNoRecipient):
		BadRequest(c, "请先设置邮箱")
		return
	case err != nil:
		InternalError(c, SafeErrorMessage(err, "邮件发送失败"))
		return
	}

	message := "提醒已发送"
	if sent == 0 {
		message = "没有需要提醒的风险"
	}
	SuccessWithMessage(c, message, AlertResponse{Sent: sent, MinSeverity: minSeverity, ReportID: report.ID})
}
