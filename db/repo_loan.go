package db

import (
	"context"
	"errors"
	"fmt"

	"equipment_loan_tool/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 借出：原子操作 = 锁住物资 → 写入借用记录 → 更新借出件数/状态
func (r *Repo) OpenLoan(ctx context.Context, l models.Loan, m models.Material) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Material
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cur, "id = ?", m.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 远端缺失时补齐
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert material: %w", err)
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&models.Material{}).Where("id = ?", m.ID).
				Updates(map[string]any{
					"loaned_quantity": m.LoanedQuantity,
					"status":          m.Status,
					"updated_at":      m.UpdatedAt,
				}).Error; err != nil {
				return fmt.Errorf("update material: %w", err)
			}
		}
		if err := tx.Create(&l).Error; err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		return nil
	})
}

// 归还：原子操作 = 完成借用 → 回写物资
func (r *Repo) CloseLoan(ctx context.Context, l models.Loan, m *models.Material) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Loan
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cur, "id = ?", l.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		// 幂等：已归还直接返回
		if err == nil && cur.ActualReturnDate != nil {
			return nil
		}
		if err := tx.Save(&l).Error; err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		if m == nil {
			return nil
		}
		if err := tx.Model(&models.Material{}).Where("id = ?", m.ID).
			Updates(map[string]any{
				"condition":       m.Condition,
				"loaned_quantity": m.LoanedQuantity,
				"status":          m.Status,
				"updated_at":      m.UpdatedAt,
			}).Error; err != nil {
			return fmt.Errorf("update material: %w", err)
		}
		return nil
	})
}
