package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"expenseguard/database"
	"expenseguard/importer"
	"expenseguard/middleware"
	"expenseguard/models"
	"expenseguard/risk"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// maxImportSize 导入文件大小上限
const maxImportSize = 5 << 20

// importBatchSize 导入时每条 INSERT 的行数，避免超出 MySQL 的占位符上限
var importBatchSize = 500

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct {
	now func() time.Time
}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler() *ExpenseHandler {
	return &ExpenseHandler{now: time.Now}
}

// ExpenseRequest 创建/更新消费记录请求，金额可为数字或字符串
type ExpenseRequest struct {
	Amount        risk.Amount `json:"amount" swaggertype:"number" example:"1250.50"`
	Category      string      `json:"category" example:"Food"`
	Vendor        string      `json:"vendor" binding:"max=100" example:"Cafe Coffee Day"`
	Description   string      `json:"description" example:"Team lunch"`
	ReceiptURL    string      `json:"receipt_url" binding:"omitempty,max=500" example:"https://example.com/r/1.jpg"`
	PaymentMethod string      `json:"payment_method" binding:"max=30" example:"card"`
	Status        string      `json:"status" binding:"omitempty,oneof=pending approved rejected" example:"pending"`
	Date          string      `json:"date" example:"2024-01-15"`
}

// ExpenseListRequest 消费记录列表请求
type ExpenseListRequest struct {
	Page      int    `form:"page" example:"1"`
	PageSize  int    `form:"page_size" example:"10"`
	Category  string `form:"category" example:"Food"`
	Search    string `form:"search" example:"lunch"`
	SortBy    string `form:"sort_by" example:"date"`
	Order     string `form:"order" example:"desc"`
	StartDate string `form:"start_date" example:"2024-01-01"`
	EndDate   string `form:"end_date" example:"2024-12-31"`
}

// 可排序字段
var sortColumns = map[string]string{
	"date":       "date",
	"amount":     "amount",
	"category":   "category",
	"created_at": "created_at",
}

// toRisk 组装待校验的记录，date 为空时保持零值
func (r *ExpenseRequest) toRisk() (risk.Expense, error) {
	e := risk.Expense{
		Amount:        r.Amount,
		Category:      strings.TrimSpace(r.Category),
		Vendor:        strings.TrimSpace(r.Vendor),
		Description:   r.Description,
		ReceiptURL:    strings.TrimSpace(r.ReceiptURL),
		PaymentMethod: r.PaymentMethod,
		Status:        r.Status,
	}
	if r.Date != "" {
		d, err := time.ParseInLocation(dateLayout, r.Date, time.Local)
		if err != nil {
			return e, errors.New("日期格式错误，应为: 2006-01-02")
		}
		e.Date = d
	}
	return e, nil
}

// findCategory 按名称查询类别，不存在返回 nil
func findCategory(name string) (*models.ExpenseCategory, error) {
	var cat models.ExpenseCategory
	err := database.DB.Where("name = ?", name).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// validate 类别存在性 + 业务校验（含类别月度限额），失败时已写响应
func (h *ExpenseHandler) validate(c *gin.Context, e risk.Expense) bool {
	var cats []risk.CategoryConfig
	if e.Category != "" {
		cat, err := findCategory(e.Category)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询类别失败"))
			return false
		}
		if cat == nil {
			BadRequest(c, "无效的消费类别")
			return false
		}
		cats = append(cats, cat.ToRisk())
	}

	if v := risk.ValidateExpense(e, cats, h.now()); !v.IsValid() {
		ValidationFailed(c, v)
		return false
	}
	return true
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description 创建一条新的消费记录。金额必须大于 0，日期不能晚于今天，描述不超过 500 字，单笔金额不能超过类别月度限额
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=models.Expense} "创建成功"
// @Failure 400 {object} Response{data=map[string]string} "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	e, err := req.toRisk()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if !h.validate(c, e) {
		return
	}

	status := e.Status
	if status == "" {
		status = models.ExpenseStatusPending
	}
	expense := models.Expense{
		UserID:        userID,
		Amount:        e.Amount.Value,
		Category:      e.Category,
		Vendor:        e.Vendor,
		Description:   e.Description,
		ReceiptURL:    e.ReceiptURL,
		PaymentMethod: e.PaymentMethod,
		Status:        status,
		Date:          e.Date,
	}

	if err := database.DB.Create(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建消费记录失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", expense)
}

// List 获取消费记录列表
// @Summary 获取消费记录列表
// @Description 获取当前用户的消费记录列表，支持分页、类别筛选、关键字搜索（描述/类别/商户）、排序和日期范围
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param category query string false "类别筛选"
// @Param search query string false "关键字"
// @Param sort_by query string false "排序字段" Enums(date,amount,category,created_at)
// @Param order query string false "排序方向" Enums(asc,desc)
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=PageResponse{list=[]models.Expense}} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ExpenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	query := database.DB.Model(&models.Expense{}).Where("user_id = ?", userID)

	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("description LIKE ? OR category LIKE ? OR vendor LIKE ?", like, like, like)
	}
	query = applyDateRange(query, req.StartDate, req.EndDate)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	var expenses []models.Expense
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order(orderClause(req.SortBy, req.Order)).Offset(offset).Limit(req.PageSize).Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		List:     expenses,
	})
}

// orderClause 白名单排序，默认按创建时间倒序
func orderClause(sortBy, order string) string {
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir + ", id " + dir
}

// applyDateRange 按消费日期筛选（含首尾），格式错误的参数忽略
func applyDateRange(query *gorm.DB, start, end string) *gorm.DB {
	if start != "" {
		if t, err := time.ParseInLocation(dateLayout, start, time.Local); err == nil {
			query = query.Where("date >= ?", t)
		}
	}
	if end != "" {
		if t, err := time.ParseInLocation(dateLayout, end, time.Local); err == nil {
			query = query.Where("date <= ?", t)
		}
	}
	return query
}

// loadExpense 读取当前用户的一条记录，失败时已写响应
func loadExpense(c *gin.Context) (*models.Expense, bool) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return nil, false
	}

	var expense models.Expense
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return nil, false
	}
	return &expense, true
}

// Get 获取单条消费记录
// @Summary 获取单条消费记录
// @Description 根据ID获取消费记录详情
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response{data=models.Expense} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	expense, ok := loadExpense(c)
	if !ok {
		return
	}
	Success(c, expense)
}

// Update 更新消费记录
// @Summary 更新消费记录
// @Description 整体更新指定的消费记录，校验规则与创建相同
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param request body ExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	expense, ok := loadExpense(c)
	if !ok {
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	e, err := req.toRisk()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if !h.validate(c, e) {
		return
	}

	updates := map[string]interface{}{
		"amount":         e.Amount.Value,
		"category":       e.Category,
		"vendor":         e.Vendor,
		"description":    e.Description,
		"receipt_url":    e.ReceiptURL,
		"payment_method": e.PaymentMethod,
		"date":           e.Date,
	}
	if e.Status != "" {
		updates["status"] = e.Status
	}

	if err := database.DB.Model(expense).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	if err := database.DB.First(expense, expense.ID).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	SuccessWithMessage(c, "更新成功", expense)
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Description 删除指定的消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	expense, ok := loadExpense(c)
	if !ok {
		return
	}

	if err := database.DB.Delete(expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// StatisticsResponse 消费统计
type StatisticsResponse struct {
	TotalAmount   float64                  `json:"total_amount"`
	TotalCount    int                      `json:"total_count"`
	Average       float64                  `json:"average"`
	CategoryStats []risk.CategoryAggregate `json:"category_stats"`
	Monthly       []risk.MonthlyAggregate  `json:"monthly"`
}

// GetStatistics 获取消费统计
// @Summary 获取消费统计
// @Description 按类别（含占比与图标）和按月汇总当前用户的消费，可选日期范围
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=StatisticsResponse} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses/statistics [get]
func (h *ExpenseHandler) GetStatistics(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Where("user_id = ?", userID)
	query = applyDateRange(query, c.Query("start_date"), c.Query("end_date"))

	var expenses []models.Expense
	if err := query.Order("created_at DESC").Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	list := models.ExpensesToRisk(expenses)
	total := risk.TotalAmount(list)
	var avg float64
	if len(list) > 0 {
		avg = total / float64(len(list))
	}

	Success(c, StatisticsResponse{
		TotalAmount:   total,
		TotalCount:    len(list),
		Average:       avg,
		CategoryStats: risk.SortCategoryAggregates(risk.GroupByCategory(list)),
		Monthly:       risk.MonthlyTotals(list),
	})
}

// ImportResponse 导入结果
type ImportResponse struct {
	Imported int                 `json:"imported"`
	Skipped  int                 `json:"skipped"`
	Errors   []importer.RowError `json:"errors"`
}

// Import 从 CSV 批量导入消费记录
// @Summary 导入消费记录
// @Description 上传 CSV 文件批量导入，表头需包含 Date、Category、Amount，可选 Description、Vendor、Payment Method、Status、Receipt URL。校验失败的行会被跳过并返回原因
// @Tags 消费记录
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV 文件"
// @Success 200 {object} Response{data=ImportResponse} "导入完成"
// @Failure 400 {object} Response "文件错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses/import [post]
func (h *ExpenseHandler) Import(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传 CSV 文件")
		return
	}
	if fh.Size > maxImportSize {
		BadRequest(c, "文件不能超过 5MB")
		return
	}
	f, err := fh.Open()
	if err != nil {
		BadRequest(c, "读取文件失败")
		return
	}
	defer f.Close()

	parsed, err := importer.Parse(f)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	var catList []models.ExpenseCategory
	if err := database.DB.Find(&catList).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询类别失败"))
		return
	}
	cats := models.CategoriesToRisk(catList)
	known := make(map[string]bool, len(cats))
	for _, cat := range cats {
		known[cat.Name] = true
	}

	rowErrors := parsed.Errors
	now := h.now()
	toCreate := make([]models.Expense, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		e, line := row.Expense, row.Line
		if e.Category != "" && !known[e.Category] {
			rowErrors = append(rowErrors, importer.RowError{Line: line, Err: "无效的消费类别 " + e.Category})
			continue
		}
		if v := risk.ValidateExpense(e, cats, now); !v.IsValid() {
			rowErrors = append(rowErrors, importer.RowError{Line: line, Err: joinValidation(v)})
			continue
		}
		status := e.Status
		if status != models.ExpenseStatusApproved && status != models.ExpenseStatusRejected {
			status = models.ExpenseStatusPending
		}
		toCreate = append(toCreate, models.Expense{
			UserID:        userID,
			Amount:        e.Amount.Value,
			Category:      e.Category,
			Vendor:        e.Vendor,
			Description:   e.Description,
			ReceiptURL:    e.ReceiptURL,
			PaymentMethod: e.PaymentMethod,
			Status:        status,
			Date:          e.Date,
		})
	}

	// 超过一批时 CreateInBatches 会把所有批次放进同一个事务
	if len(toCreate) > 0 {
		if err := database.DB.CreateInBatches(&toCreate, importBatchSize).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "导入失败"))
			return
		}
	}

	SuccessWithMessage(c, "导入完成", ImportResponse{
		Imported: len(toCreate),
		Skipped:  len(rowErrors),
		Errors:   rowErrors,
	})
}

func joinValidation(v risk.Validation) string {
	keys := []string{"amount", "category", "date", "description"}
	msgs := make([]string, 0, len(v))
	for _, k := range keys {
		if m, ok := v[k]; ok {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}

// GetCategories 获取消费类别列表
// @Summary 获取消费类别列表
// @Description 获取所有消费类别（含图标、颜色、月度限额），按 sort 升序、ID 升序排列
// @Tags 消费类别
// @Produce json
// @Success 200 {object} Response{data=[]models.ExpenseCategory} "获取成功"
// @Failure 500 {object} Response "查询失败"
// @Router /api/v1/categories [get]
func (h *ExpenseHandler) GetCategories(c *gin.Context) {
	var list []models.ExpenseCategory
	if err := database.DB.Order("sort ASC, id ASC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, list)
}
