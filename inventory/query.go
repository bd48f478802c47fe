package inventory

import (
	"strings"

	"equipment_loan_tool/models"

	"github.com/shopspring/decimal"
)

// Stats 按件数统计，而非按记录条数
type Stats struct {
	Total     int `json:"total"`
	Loaned    int `json:"loaned"`
	Available int `json:"available"`
}

// Dashboard 首页统计卡片
type Dashboard struct {
	Stats
	Materials    int             `json:"materials"`
	ActiveLoans  int             `json:"activeLoans"`
	OverdueLoans int             `json:"overdueLoans"`
	TotalValue   decimal.Decimal `json:"totalValue"`
}

// Filter 分类相等（或 all）且名称/地点/品牌/型号包含 term，忽略大小写
func (r *Registry) Filter(category, term string) []models.Material {
	term = strings.ToLower(term)
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Material, 0, len(r.items))
	for _, m := range r.items {
		if category != models.CategoryAll && m.Category != category {
			continue
		}
		if !matchesTerm(m, term) {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

func matchesTerm(m models.Material, term string) bool {
	if term == "" {
		return true
	}
	for _, f := range []string{m.Name, m.Location, m.Brand, m.Model} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Stats
	for _, m := range r.items {
		s.Total += m.Quantity
		s.Loaned += m.LoanedQuantity
	}
	s.Available = s.Total - s.Loaned
	return s
}

// TotalValue 有价值的物资按 value × quantity 求和
func (r *Registry) TotalValue() decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, m := range r.items {
		if m.Value == nil {
			continue
		}
		sum = sum.Add(m.Value.Mul(decimal.NewFromInt(int64(m.Quantity))))
	}
	return sum
}
