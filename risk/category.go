package risk

// 消费类别
const (
	CategoryFood          = "Food"
	CategoryTravel        = "Travel"
	CategoryEntertainment = "Entertainment"
	CategoryOffice        = "Office"
	CategoryHealthcare    = "Healthcare"
	CategoryEducation     = "Education"
	CategoryShopping      = "Shopping"
	CategoryUtilities     = "Utilities"
	CategoryOther         = "Other"
)

// CategoryInfo 类别展示信息
type CategoryInfo struct {
	Name  string
	Label string
	Emoji string
	Color string
}

// Categories 内置类别，顺序即默认排序
var Categories = []CategoryInfo{
	{CategoryFood, "Food & Dining", "🍽️", "#ef4444"},
	{CategoryTravel, "Travel", "✈️", "#3b82f6"},
	{CategoryEntertainment, "Entertainment", "🎬", "#ec4899"},
	{CategoryOffice, "Office Supplies", "🏢", "#0ea5e9"},
	{CategoryHealthcare, "Healthcare", "🏥", "#10b981"},
	{CategoryEducation, "Education", "📚", "#f59e0b"},
	{CategoryShopping, "Shopping", "🛍️", "#a855f7"},
	{CategoryUtilities, "Utilities", "⚡", "#14b8a6"},
	{CategoryOther, "Other", "📦", "#64748b"},
}

const defaultEmoji = "📦"

// IsKnownCategory 判断是否为内置类别
func IsKnownCategory(name string) bool {
	for _, c := range Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CategoryEmoji 返回类别对应的 emoji，未知类别返回 📦
func CategoryEmoji(name string) string {
	for _, c := range Categories {
		if c.Name == name {
			return c.Emoji
		}
	}
	return defaultEmoji
}

// isBusinessCategory 周末出现需要关注的业务类别
func isBusinessCategory(name string) bool {
	return name == CategoryOffice || name == CategoryTravel
}
