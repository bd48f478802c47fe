package inventory

import (
	"context"
	"errors"
	"sync"

	"equipment_loan_tool/logger"
	"equipment_loan_tool/models"
)

// ReturnPolicy 归还后物资状态的计算方式
type ReturnPolicy int

const (
	// ReturnAlwaysAvailable 归还后一律 available
	ReturnAlwaysAvailable ReturnPolicy = iota
	// ReturnDerive 仍无空闲件数时保持 loaned
	ReturnDerive
)

// Desk 借还柜台：借用记录和物资一起改，远端写入合并为一次 Store 调用
type Desk struct {
	mu     sync.Mutex
	reg    *Registry
	led    *Ledger
	mirror *Mirror
	policy ReturnPolicy
}

func NewDesk(reg *Registry, led *Ledger, mirror *Mirror, policy ReturnPolicy) *Desk {
	return &Desk{reg: reg, led: led, mirror: mirror, policy: policy}
}

func (d *Desk) Registry() *Registry { return d.reg }
func (d *Desk) Ledger() *Ledger     { return d.led }

// Lend 借出：校验件数，记下借出时状况，占用物资件数
func (d *Desk) Lend(ctx context.Context, in models.Loan) (models.Loan, models.Material, error) {
	if in.Quantity < 1 {
		return models.Loan{}, models.Material{}, ErrInvalidQuantity
	}
	in.ActualReturnDate = nil
	in.ConditionAtReturn = nil
	loan, err := d.led.prepare(in)
	if err != nil {
		return models.Loan{}, models.Material{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// 校验和扣减在同一把写锁里，PATCH 插不进来
	updated, err := d.reg.mutate(loan.MaterialID, func(m *models.Material) error {
		if m.Status == models.StatusLost || m.Status == models.StatusMaintenance {
			return ErrMaterialUnavailable
		}
		if loan.Quantity > m.FreeUnits() {
			return ErrInsufficientQuantity
		}
		loan.ConditionAtLoan = m.Condition
		m.LoanedQuantity += loan.Quantity
		if m.Quantity-m.LoanedQuantity <= 0 {
			m.Status = models.StatusLoaned
		}
		return nil
	}, func(m models.Material) {
		d.mirror.openLoan(ctx, loan.Clone(), m)
	})
	if err != nil {
		return models.Loan{}, models.Material{}, err
	}

	return d.led.insert(loan, nil), updated, nil
}

// Return 归还。借用不存在或已归还时返回错误且不做改动；
// 物资已删除时只记日志，借用照样结束并写远端
func (d *Desk) Return(ctx context.Context, loanID string, cond models.MaterialCondition) (models.Loan, *models.Material, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	loan, err := d.led.close(loanID, cond, nil)
	if err != nil {
		return models.Loan{}, nil, err
	}

	m, err := d.reg.mutate(loan.MaterialID, func(m *models.Material) error {
		patch := returnPatch(*m, loan, cond)
		if d.policy == ReturnDerive {
			patch = derive(*m, patch)
		}
		patch.Apply(m)
		return nil
	}, func(m models.Material) {
		d.mirror.closeLoan(ctx, loan.Clone(), &m)
	})
	if errors.Is(err, ErrMaterialNotFound) {
		logger.Warnf(ctx, "return loan %s: material %s not found, loan closed anyway", loan.ID, loan.MaterialID)
		d.mirror.closeLoan(ctx, loan.Clone(), nil)
		return loan, nil, nil
	}
	if err != nil {
		return models.Loan{}, nil, err
	}
	return loan, &m, nil
}

func derive(mat models.Material, patch models.MaterialPatch) models.MaterialPatch {
	if patch.LoanedQuantity == nil {
		return patch
	}
	if mat.Quantity-*patch.LoanedQuantity <= 0 {
		st := models.StatusLoaned
		patch.Status = &st
	}
	return patch
}

// Dashboard 件数统计加借用计数
func (d *Desk) Dashboard() Dashboard {
	return Dashboard{
		Stats:        d.reg.Stats(),
		Materials:    d.reg.Len(),
		ActiveLoans:  len(d.led.Active()),
		OverdueLoans: len(d.led.Overdue()),
		TotalValue:   d.reg.TotalValue(),
	}
}
