// Package importer 从 CSV 文件读取消费记录
//
// 表头不区分大小写，列顺序任意；必须包含 Date、Category、Amount 三列，
// 其余列（Description、Vendor、Payment Method、Status、Receipt URL、ID）可选。
// 导出接口生成的 CSV 可以直接导入。
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"expenseguard/risk"
)

// ErrMissingColumn 缺少必需列
var ErrMissingColumn = errors.New("缺少必需列")

// 支持的日期格式，按顺序尝试
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

const (
	colID          = "id"
	colDate        = "date"
	colCategory    = "category"
	colAmount      = "amount"
	colDescription = "description"
	colVendor      = "vendor"
	colPayment     = "payment method"
	colStatus      = "status"
	colReceipt     = "receipt url"
)

var requiredColumns = []string{colDate, colCategory, colAmount}

// RowError 单行解析失败，Line 为文件中的行号（表头为第 1 行）
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("第 %d 行: %s", e.Line, e.Err)
}

// Row 成功解析的一行
type Row struct {
	Line    int
	Expense risk.Expense
}

// Result 导入结果
// 金额无法解析的行仍然保留（Amount 为无效值），由风险规则标记为数据质量问题
type Result struct {
	Rows   []Row
	Errors []RowError
}

// Expenses 按文件顺序返回全部记录
func (r *Result) Expenses() []risk.Expense {
	out := make([]risk.Expense, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row.Expense)
	}
	return out
}

// Parser CSV 解析器
type Parser struct {
	// Location 解析不带时区的日期时使用，默认 UTC
	Location *time.Location
}

// Parse 使用默认配置解析
func Parse(r io.Reader) (*Result, error) {
	return (&Parser{}).Parse(r)
}

// Parse 读取 CSV，返回成功解析的记录与逐行错误
// 只有文件无法读取或缺少必需列时返回 error
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Result{Rows: []Row{}, Errors: []RowError{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	cols := indexHeader(header)
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	res := &Result{Rows: []Row{}, Errors: []RowError{}}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("读取第 %d 行失败: %w", line, err)
		}
		if isBlank(rec) {
			continue
		}

		e, err := parseRow(rec, cols, line, loc)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Err: err.Error()})
			continue
		}
		res.Rows = append(res.Rows, Row{Line: line, Expense: e})
	}
	return res, nil
}

func parseRow(rec []string, cols map[string]int, line int, loc *time.Location) (risk.Expense, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rawDate := get(colDate)
	if rawDate == "" {
		return risk.Expense{}, errors.New("日期不能为空")
	}
	date, err := parseDate(rawDate, loc)
	if err != nil {
		return risk.Expense{}, err
	}

	id := get(colID)
	if id == "" {
		id = "row-" + strconv.Itoa(line)
	}

	return risk.Expense{
		ID:            id,
		Amount:        risk.ParseAmount(cleanAmount(get(colAmount))),
		Category:      get(colCategory),
		Vendor:        get(colVendor),
		Description:   get(colDescription),
		ReceiptURL:    get(colReceipt),
		PaymentMethod: get(colPayment),
		Status:        get(colStatus),
		Date:          date,
	}, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法识别的日期 %q", s)
}

// cleanAmount 去掉货币符号与千分位
func cleanAmount(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "₹")
	s = strings.TrimPrefix(s, "Rs.")
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, "_", " ")
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
