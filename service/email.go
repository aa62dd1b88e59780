package service

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"expenseguard/config"
	"expenseguard/risk"

	"gopkg.in/gomail.v2"
)

// ErrEmailDisabled 邮件服务未启用
var ErrEmailDisabled = errors.New("邮件服务未启用，请配置 EXPENSEGUARD_EMAIL_ENABLED=true")

// ErrNoRecipient 用户未设置邮箱
var ErrNoRecipient = errors.New("用户未设置邮箱")

// Dialer 发送邮件的最小接口，便于测试替换
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService 邮件服务
type EmailService struct {
	cfg    *config.EmailConfig
	dialer Dialer
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// WithDialer 替换发送器
func (s *EmailService) WithDialer(d Dialer) *EmailService {
	s.dialer = d
	return s
}

// SendRiskDigest 发送风险摘要邮件，只包含等级不低于 minSeverity 的条目
// 返回实际写入邮件的条数；没有需要提醒的条目时不发送
func (s *EmailService) SendRiskDigest(toEmail, username string, report *Report, minSeverity risk.Severity) (int, error) {
	if !s.cfg.Enabled {
		return 0, ErrEmailDisabled
	}
	if strings.TrimSpace(toEmail) == "" {
		return 0, ErrNoRecipient
	}

	findings := risk.FilterBySeverity(report.Combined, minSeverity)
	if len(findings) == 0 {
		return 0, nil
	}

	subject := fmt.Sprintf("【Expense Guard】%d 条风险提醒，合规分 %d", len(findings), report.ComplianceScore)
	body := s.generateRiskDigestBody(username, report, findings)

	if err := s.sendEmail(toEmail, subject, body); err != nil {
		return 0, err
	}
	return len(findings), nil
}

// generateRiskDigestBody 生成风险摘要邮件内容
func (s *EmailService) generateRiskDigestBody(username string, report *Report, findings []risk.Finding) string {
	var rows strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&rows, `
                <tr>
                    <td class="sev sev-%s">%s</td>
                    <td>%s</td>
                    <td>%s</td>
                    <td>%s</td>
                    <td>%s</td>
                </tr>`,
			f.Severity, strings.ToUpper(string(f.Severity)),
			html.EscapeString(f.Expense.Date.Format(time.DateOnly)+" · "+risk.DaysAgo(f.Expense.Date, report.EvaluatedAt)),
			html.EscapeString(f.Expense.Category),
			risk.FormatINR(f.Expense.Amount.Float64()),
			html.EscapeString(f.Message+" · "+f.Recommendation),
		)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 720px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #dc2626, #b91c1c); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 16px; }
        table { width: 100%%; border-collapse: collapse; font-size: 13px; }
        th, td { border-bottom: 1px solid #e5e7eb; padding: 8px; text-align: left; }
        .sev { font-weight: 600; }
        .sev-critical { color: #b91c1c; }
        .sev-high { color: #ea580c; }
        .sev-medium { color: #ca8a04; }
        .sev-low { color: #64748b; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>💰 Expense Guard</h1>
        </div>
        <div class="content">
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>截至 %s，您的 %d 条消费记录共识别出 %d 条需要关注的风险，当前合规分为 <strong>%d</strong>。</p>
            <table>
                <tr><th>等级</th><th>日期</th><th>类别</th><th>金额</th><th>说明</th></tr>%s
            </table>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
            <p>报告编号 %s</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(username), report.EvaluatedAt.Format(time.DateOnly), report.ExpenseCount,
		len(findings), report.ComplianceScore, rows.String(), report.ID)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}
