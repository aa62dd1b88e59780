package risk

import (
	"sort"

	"github.com/shopspring/decimal"
)

// GroupByCategory 按类别汇总，类别为空时归入 Other，无效金额按 0 计
func GroupByCategory(expenses []Expense) map[string]CategoryAggregate {
	type acc struct {
		total decimal.Decimal
		ids   []string
	}
	sums := make(map[string]*acc)
	grand := decimal.Zero

	for _, e := range expenses {
		category := e.Category
		if category == "" {
			category = CategoryOther
		}
		a, ok := sums[category]
		if !ok {
			a = &acc{total: decimal.Zero}
			sums[category] = a
		}
		amount := e.Amount.OrZero()
		a.total = a.total.Add(amount)
		a.ids = append(a.ids, e.ID)
		grand = grand.Add(amount)
	}

	result := make(map[string]CategoryAggregate, len(sums))
	for category, a := range sums {
		count := len(a.ids)
		agg := CategoryAggregate{
			Category:   category,
			Emoji:      CategoryEmoji(category),
			Total:      a.total.InexactFloat64(),
			Count:      count,
			Average:    a.total.Div(decimal.NewFromInt(int64(count))).InexactFloat64(),
			ExpenseIDs: a.ids,
		}
		if grand.IsPositive() {
			agg.Share = a.total.Div(grand).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		result[category] = agg
	}
	return result
}

// SortCategoryAggregates 按总额降序排列，总额相同按类别名升序
func SortCategoryAggregates(groups map[string]CategoryAggregate) []CategoryAggregate {
	list := make([]CategoryAggregate, 0, len(groups))
	for _, g := range groups {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Total != list[j].Total {
			return list[i].Total > list[j].Total
		}
		return list[i].Category < list[j].Category
	})
	return list
}

// MonthlyTotals 按月汇总，结果按 YYYY-MM 升序
func MonthlyTotals(expenses []Expense) []MonthlyAggregate {
	type acc struct {
		total decimal.Decimal
		count int
	}
	months := make(map[string]*acc)
	var keys []string

	for _, e := range expenses {
		key := MonthKey(e.Date)
		a, ok := months[key]
		if !ok {
			a = &acc{total: decimal.Zero}
			months[key] = a
			keys = append(keys, key)
		}
		a.total = a.total.Add(e.Amount.OrZero())
		a.count++
	}

	// YYYY-MM 的字典序即时间顺序
	sort.Strings(keys)

	result := make([]MonthlyAggregate, 0, len(keys))
	for _, key := range keys {
		a := months[key]
		result = append(result, MonthlyAggregate{
			Key:     key,
			Label:   MonthLabel(key),
			Total:   a.total.InexactFloat64(),
			Count:   a.count,
			Average: a.total.Div(decimal.NewFromInt(int64(a.count))).InexactFloat64(),
		})
	}
	return result
}

// TotalAmount 全部有效金额之和
func TotalAmount(expenses []Expense) float64 {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(e.Amount.OrZero())
	}
	return sum.InexactFloat64()
}
