package api

import (
	"strconv"
	"strings"

	"expenseguard/database"
	"expenseguard/models"
	"expenseguard/risk"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const defaultCategoryColor = "#64748b"

// CategoryHandler 消费类别管理
type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CategoryCreateRequest 创建类别请求，monthly_limit 为空或 0 表示不限
type CategoryCreateRequest struct {
	Name         string           `json:"name" binding:"required,min=1,max=50" example:"Food"`
	Emoji        string           `json:"emoji" binding:"omitempty,max=16" example:"🍔"`
	Sort         int              `json:"sort" example:"10"`
	Color        string           `json:"color" binding:"omitempty,max=20" example:"#ef4444"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit" swaggertype:"number" example:"15000"`
}

// CategoryUpdateRequest 更新类别请求，未传的字段保持不变
type CategoryUpdateRequest struct {
	Name         string           `json:"name" binding:"omitempty,min=1,max=50"`
	Emoji        *string          `json:"emoji" binding:"omitempty,max=16"`
	Sort         *int             `json:"sort"`
	Color        *string          `json:"color" binding:"omitempty,max=20"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit" swaggertype:"number"`
}

// normalizeLimit 负数非法，0 视为不限
func normalizeLimit(d *decimal.Decimal) (*decimal.Decimal, bool) {
	if d == nil {
		return nil, true
	}
	if d.IsNegative() {
		return nil, false
	}
	if d.IsZero() {
		return nil, true
	}
	v := d.Round(2)
	return &v, true
}

// Create 创建类别
// @Summary 创建消费类别
// @Description 创建新的消费类别，可设置图标、颜色、排序与月度限额
// @Tags 消费类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryCreateRequest true "类别信息"
// @Success 200 {object} Response{data=models.ExpenseCategory} "创建成功"
// @Failure 400 {object} Response "参数错误或类别名称已存在"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(c, "名称不能为空")
		return
	}
	limit, ok := normalizeLimit(req.MonthlyLimit)
	if !ok {
		BadRequest(c, "月度限额不能为负数")
		return
	}

	if existing, err := findCategory(req.Name); err != nil {
		InternalError(c, SafeErrorMessage(err, "查询类别失败"))
		return
	} else if existing != nil {
		BadRequest(c, "类别名称已存在")
		return
	}

	color := req.Color
	if color == "" {
		color = defaultCategoryColor
	}
	emoji := req.Emoji
	if emoji == "" {
		emoji = risk.CategoryEmoji(req.Name)
	}
	cat := models.ExpenseCategory{Name: req.Name, Emoji: emoji, Sort: req.Sort, Color: color, MonthlyLimit: limit}
	if err := database.DB.Create(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建失败"))
		return
	}
	SuccessWithMessage(c, "创建成功", cat)
}

// Update 更新类别
// @Summary 更新消费类别
// @Description 更新指定的消费类别，monthly_limit 传 0 可取消限额
// @Tags 消费类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Param request body CategoryUpdateRequest true "更新的类别信息"
// @Success 200 {object} Response{data=models.ExpenseCategory} "更新成功"
// @Failure 400 {object} Response "参数错误或类别名称已存在"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var cat models.ExpenseCategory
	if err := database.DB.First(&cat, uint(id64)).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}

	var req CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			BadRequest(c, "名称不能为空")
			return
		}
		var existing models.ExpenseCategory
		if err := database.DB.Where("name = ? AND id != ?", req.Name, cat.ID).First(&existing).Error; err == nil {
			BadRequest(c, "类别名称已存在")
			return
		}
		updates["name"] = req.Name
	}
	if req.Emoji != nil {
		updates["emoji"] = *req.Emoji
	}
	if req.Sort != nil {
		updates["sort"] = *req.Sort
	}
	if req.Color != nil {
		color := *req.Color
		if color == "" {
			color = defaultCategoryColor
		}
		updates["color"] = color
	}
	if req.MonthlyLimit != nil {
		limit, ok := normalizeLimit(req.MonthlyLimit)
		if !ok {
			BadRequest(c, "月度限额不能为负数")
			return
		}
		if limit == nil {
			updates["monthly_limit"] = nil
		} else {
			updates["monthly_limit"] = *limit
		}
	}
	if len(updates) == 0 {
		SuccessWithMessage(c, "无需更新", cat)
		return
	}

	if err := database.DB.Model(&cat).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}
	database.DB.First(&cat, cat.ID)
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 软删除类别
// @Summary 删除消费类别
// @Description 软删除指定的消费类别，已有消费记录保留原类别名称
// @Tags 消费类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "无效的ID"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}
	var cat models.ExpenseCategory
	if err := database.DB.First(&cat, uint(id64)).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}
	if err := database.DB.Delete(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
