// models/material.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const MaterialTable = "inv_materials"

// 过滤通配分类
const CategoryAll = "all"

var Categories = []string{
	"Eau Libre",
	"Water Polo",
	"Natation Artistique",
	"Chronométrage",
	"Informatique",
	"Audiovisuel",
	"Autre",
}

func init() {
	// value 按数字输出，与前端一致
	decimal.MarshalJSONWithoutQuotes = true
}

type MaterialStatus string

const (
	StatusAvailable   MaterialStatus = "available"
	StatusLoaned      MaterialStatus = "loaned"
	StatusMaintenance MaterialStatus = "in_maintenance"
	StatusLost        MaterialStatus = "lost"
)

var statusAliases = map[string]MaterialStatus{
	"available":      StatusAvailable,
	"disponible":     StatusAvailable,
	"loaned":         StatusLoaned,
	"prêté":          StatusLoaned,
	"prete":          StatusLoaned,
	"in_maintenance": StatusMaintenance,
	"en_maintenance": StatusMaintenance,
	"lost":           StatusLost,
	"perdu":          StatusLost,
}

// ParseStatus 接受标准值和旧版法语标签
func ParseStatus(s string) (MaterialStatus, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown material status %q", s)
}

func (s *MaterialStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type MaterialCondition string

const (
	ConditionExcellent MaterialCondition = "excellent"
	ConditionGood      MaterialCondition = "good"
	ConditionAverage   MaterialCondition = "average"
	ConditionPoor      MaterialCondition = "poor"
)

var conditionAliases = map[string]MaterialCondition{
	"excellent": ConditionExcellent,
	"good":      ConditionGood,
	"bon":       ConditionGood,
	"average":   ConditionAverage,
	"moyen":     ConditionAverage,
	"poor":      ConditionPoor,
	"mauvais":   ConditionPoor,
}

func ParseCondition(s string) (MaterialCondition, error) {
	if c, ok := conditionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown material condition %q", s)
}

func (c *MaterialCondition) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	mc, err := ParseCondition(raw)
	if err != nil {
		return err
	}
	*c = mc
	return nil
}

// Material 一条库存记录，quantity 可包含多件实物
type Material struct {
	ID           string            `gorm:"size:64;primaryKey" json:"id"`
	Name         string            `gorm:"size:200;not null" json:"name"`
	Category     string            `gorm:"size:80;index;not null" json:"category"`
	Subcategory  string            `gorm:"size:80" json:"subcategory,omitempty"`
	SerialNumber string            `gorm:"size:120" json:"serialNumber,omitempty"`
	Location     string            `gorm:"size:120;not null" json:"location"`
	Status       MaterialStatus    `gorm:"size:20;not null;default:'available'" json:"status"`
	Condition    MaterialCondition `gorm:"size:20;not null;default:'good'" json:"condition"`
	PurchaseDate string            `gorm:"size:10" json:"purchaseDate,omitempty"` // YYYY-MM-DD
	Value        *decimal.Decimal  `gorm:"type:numeric(12,2)" json:"value,omitempty"`
	Description  string            `gorm:"type:text" json:"description,omitempty"`
	Brand        string            `gorm:"size:120" json:"brand,omitempty"`
	Model        string            `gorm:"size:120" json:"model,omitempty"`
	Reference    string            `gorm:"size:120" json:"reference,omitempty"`
	AssociatedTo string            `gorm:"size:120" json:"associatedTo,omitempty"`
	Responsible  string            `gorm:"size:120" json:"responsible,omitempty"`
	Usage        string            `gorm:"size:255" json:"usage,omitempty"`
	Observations string            `gorm:"type:text" json:"observations,omitempty"`

	Quantity       int `gorm:"not null;default:1" json:"quantity"`
	LoanedQuantity int `gorm:"not null;default:0" json:"loanedQuantity"` // 冗余列：借出件数

	Images datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"images,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Material) TableName() string { return MaterialTable }

// FreeUnits 可借件数
func (m Material) FreeUnits() int {
	if n := m.Quantity - m.LoanedQuantity; n > 0 {
		return n
	}
	return 0
}

// MaterialPatch 浅合并的部分更新，nil 字段保持不变
type MaterialPatch struct {
	Name           *string            `json:"name,omitempty"`
	Category       *string            `json:"category,omitempty"`
	Subcategory    *string            `json:"subcategory,omitempty"`
	SerialNumber   *string            `json:"serialNumber,omitempty"`
	Location       *string            `json:"location,omitempty"`
	Status         *MaterialStatus    `json:"status,omitempty"`
	Condition      *MaterialCondition `json:"condition,omitempty"`
	PurchaseDate   *string            `json:"purchaseDate,omitempty"`
	Value          *decimal.Decimal   `json:"value,omitempty"`
	Description    *string            `json:"description,omitempty"`
	Brand          *string            `json:"brand,omitempty"`
	Model          *string            `json:"model,omitempty"`
	Reference      *string            `json:"reference,omitempty"`
	AssociatedTo   *string            `json:"associatedTo,omitempty"`
	Responsible    *string            `json:"responsible,omitempty"`
	Usage          *string            `json:"usage,omitempty"`
	Observations   *string            `json:"observations,omitempty"`
	Quantity       *int               `json:"quantity,omitempty"`
	LoanedQuantity *int               `json:"loanedQuantity,omitempty"`
	Images         *[]string          `json:"images,omitempty"`
}

func (p MaterialPatch) Apply(m *Material) {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setStr(&m.Name, p.Name)
	setStr(&m.Category, p.Category)
	setStr(&m.Subcategory, p.Subcategory)
	setStr(&m.SerialNumber, p.SerialNumber)
	setStr(&m.Location, p.Location)
	setStr(&m.PurchaseDate, p.PurchaseDate)
	setStr(&m.Description, p.Description)
	setStr(&m.Brand, p.Brand)
	setStr(&m.Model, p.Model)
	setStr(&m.Reference, p.Reference)
	setStr(&m.AssociatedTo, p.AssociatedTo)
	setStr(&m.Responsible, p.Responsible)
	setStr(&m.Usage, p.Usage)
	setStr(&m.Observations, p.Observations)
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Condition != nil {
		m.Condition = *p.Condition
	}
	if p.Value != nil {
		v := *p.Value
		m.Value = &v
	}
	if p.Quantity != nil {
		m.Quantity = *p.Quantity
	}
	if p.LoanedQuantity != nil {
		m.LoanedQuantity = *p.LoanedQuantity
	}
	if p.Images != nil {
		m.Images = append(datatypes.JSONSlice[string]{}, (*p.Images)...)
	}
}

// Clone 深拷贝 images / value，避免调用方改到内部状态
func (m Material) Clone() Material {
	out := m
	if m.Images != nil {
		out.Images = append(datatypes.JSONSlice[string]{}, m.Images...)
	}
	if m.Value != nil {
		v := *m.Value
		out.Value = &v
	}
	return out
}
