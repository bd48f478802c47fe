// models/loan.go
package models

import "time"

const LoanTable = "inv_loans"

// DateLayout 所有日期字段均为 YYYY-MM-DD，可直接按字典序比较
const DateLayout = "2006-01-02"

// DefaultLoanDays 未指定预计归还日期时的借期
const DefaultLoanDays = 30

type Loan struct {
	ID                 string             `gorm:"size:64;primaryKey" json:"id"`
	MaterialID         string             `gorm:"size:64;index;not null" json:"materialId"`
	Quantity           int                `gorm:"not null;default:1" json:"quantity"`
	BorrowerName       string             `gorm:"size:200;not null" json:"borrowerName"`
	BorrowerContact    string             `gorm:"size:200" json:"borrowerContact"`
	LoanDate           string             `gorm:"size:10;not null" json:"loanDate"`
	ExpectedReturnDate string             `gorm:"size:10;index;not null" json:"expectedReturnDate"`
	ActualReturnDate   *string            `gorm:"size:10;index" json:"actualReturnDate,omitempty"` // nil = 未归还
	Notes              string             `gorm:"size:500" json:"notes,omitempty"`
	ConditionAtLoan    MaterialCondition  `gorm:"size:20;not null" json:"conditionAtLoan"`
	ConditionAtReturn  *MaterialCondition `gorm:"size:20" json:"conditionAtReturn,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Loan) TableName() string { return LoanTable }

func (l Loan) IsActive() bool { return l.ActualReturnDate == nil }

// IsOverdue ISO 日期直接按字典序比较
func (l Loan) IsOverdue(today string) bool {
	return l.IsActive() && l.ExpectedReturnDate < today
}

func (l Loan) Clone() Loan {
	out := l
	if l.ActualReturnDate != nil {
		d := *l.ActualReturnDate
		out.ActualReturnDate = &d
	}
	if l.ConditionAtReturn != nil {
		c := *l.ConditionAtReturn
		out.ConditionAtReturn = &c
	}
	return out
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

func ParseDate(s string) (time.Time, error) { return time.Parse(DateLayout, s) }

// AddDays 在 ISO 日期上加天数
func AddDays(date string, days int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, days)), nil
}
