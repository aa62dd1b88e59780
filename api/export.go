package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"expenseguard/database"
	"expenseguard/middleware"
	"expenseguard/models"
	"expenseguard/risk"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// CSV 导出表头，与导入格式兼容
var exportCSVHeaders = []string{"Date", "Category", "Description", "Amount", "Vendor", "Payment Method", "Status", "Created At"}

const (
	expenseSheet = "Expenses"
	findingSheet = "Risk Findings"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	now func() time.Time
}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{now: time.Now}
}

// loadExportExpenses 按可选日期范围读取当前用户的消费记录，失败时已写响应
// 返回值 label 用于文件名
func loadExportExpenses(c *gin.Context) ([]models.Expense, string, bool) {
	userID := middleware.GetCurrentUserID(c)
	start, end := c.Query("start_date"), c.Query("end_date")

	for _, v := range []string{start, end} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, v); err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return nil, "", false
		}
	}

	query := applyDateRange(database.DB.Where("user_id = ?", userID), start, end)
	var expenses []models.Expense
	if err := query.Order("date DESC, id DESC").Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询数据失败"))
		return nil, "", false
	}

	label := "all"
	if start != "" || end != "" {
		label = start + "_" + end
	}
	return expenses, label, true
}

// ExportCSV 导出消费记录为 CSV
// @Summary 导出消费记录为 CSV
// @Description 导出当前用户的消费记录，可选日期范围；文件可直接用于导入
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	expenses, label, ok := loadExportExpenses(c)
	if !ok {
		return
	}

	buf := new(bytes.Buffer)
	// BOM，Excel 打开时按 UTF-8 识别
	buf.WriteString("\xEF\xBB\xBF")
	if err := writeExpensesCSV(buf, expenses); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("expenses_%s.csv", label)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeExpensesCSV(buf *bytes.Buffer, expenses []models.Expense) error {
	writer := csv.NewWriter(buf)
	if err := writer.Write(exportCSVHeaders); err != nil {
		return err
	}
	for _, e := range expenses {
		row := []string{
			e.Date.Format(dateLayout),
			e.Category,
			e.Description,
			e.Amount.StringFixed(2),
			e.Vendor,
			e.PaymentMethod,
			e.Status,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportJSONResponse JSON 导出内容
type ExportJSONResponse struct {
	ExportedAt     time.Time        `json:"exported_at"`
	TotalCount     int              `json:"total_count"`
	TotalAmount    float64          `json:"total_amount"`
	TotalFormatted string           `json:"total_formatted"`
	Expenses       []models.Expense `json:"expenses"`
}

// ExportJSON 导出消费记录为 JSON
// @Summary 导出消费记录为 JSON
// @Description 导出当前用户的消费记录与合计，可选日期范围
// @Tags 导出
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=ExportJSONResponse} "导出成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	expenses, _, ok := loadExportExpenses(c)
	if !ok {
		return
	}

	total := risk.TotalAmount(models.ExpensesToRisk(expenses))
	Success(c, ExportJSONResponse{
		ExportedAt:     h.now(),
		TotalCount:     len(expenses),
		TotalAmount:    total,
		TotalFormatted: risk.FormatINR(total),
		Expenses:       expenses,
	})
}

// ExportExcel 导出消费记录与风险提示为 Excel
// @Summary 导出 Excel
// @Description 生成包含两个工作表的 Excel：消费记录（含合计行）与风险提示
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	expenses, label, ok := loadExportExpenses(c)
	if !ok {
		return
	}

	list := models.ExpensesToRisk(expenses)
	eval := risk.Evaluate(list, nil, h.now())

	f, err := buildWorkbook(list, eval.Combined)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "生成 Excel 失败"))
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("expenses_%s.xlsx", label)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}
}

func cellBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}

// buildWorkbook 生成消费记录与风险提示两个工作表
func buildWorkbook(expenses []risk.Expense, findings []risk.Finding) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", expenseSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(findingSheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    cellBorder(),
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Border: cellBorder(),
	})

	writeHeader := func(sheet string, headers []string) {
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
	}

	// 消费记录
	writeHeader(expenseSheet, []string{"ID", "Date", "Category", "Description", "Amount", "Vendor", "Payment Method", "Status"})
	f.SetColWidth(expenseSheet, "A", "C", 14)
	f.SetColWidth(expenseSheet, "D", "D", 32)
	f.SetColWidth(expenseSheet, "E", "H", 16)
	for i, e := range expenses {
		row := i + 2
		f.SetSheetRow(expenseSheet, fmt.Sprintf("A%d", row), &[]interface{}{
			e.ID, e.Date.Format(dateLayout), e.Category, e.Description,
			e.Amount.Float64(), e.Vendor, e.PaymentMethod, e.Status,
		})
		f.SetCellStyle(expenseSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row), dataStyle)
	}
	summaryRow := len(expenses) + 2
	f.SetCellValue(expenseSheet, fmt.Sprintf("A%d", summaryRow), "合计")
	f.MergeCell(expenseSheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("D%d", summaryRow))
	f.SetCellValue(expenseSheet, fmt.Sprintf("E%d", summaryRow), risk.TotalAmount(expenses))
	f.SetCellValue(expenseSheet, fmt.Sprintf("F%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(expenses)))
	f.MergeCell(expenseSheet, fmt.Sprintf("F%d", summaryRow), fmt.Sprintf("H%d", summaryRow))
	f.SetCellStyle(expenseSheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("H%d", summaryRow), summaryStyle)

	// 风险提示
	writeHeader(findingSheet, []string{"Severity", "Type", "Risk Score", "Expense ID", "Date", "Category", "Amount", "Message", "Recommendation"})
	f.SetColWidth(findingSheet, "A", "G", 14)
	f.SetColWidth(findingSheet, "H", "I", 40)
	for i, fd := range findings {
		row := i + 2
		f.SetSheetRow(findingSheet, fmt.Sprintf("A%d", row), &[]interface{}{
			string(fd.Severity), string(fd.Type), fd.RiskScore, fd.Expense.ID,
			fd.Expense.Date.Format(dateLayout), fd.Expense.Category, fd.Expense.Amount.Float64(),
			fd.Message, fd.Recommendation,
		})
		f.SetCellStyle(findingSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), dataStyle)
	}

	return f, nil
}
