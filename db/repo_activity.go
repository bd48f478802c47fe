package db

import (
	"context"
	"fmt"
	"time"

	"equipment_loan_tool/models"
)

func (r *Repo) LogActivity(ctx context.Context, typ, targetID string, at time.Time) error {
	log := &models.ActivityLog{Type: typ, TargetID: targetID, CreatedAt: at}
	if err := r.DB.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// ListActivity 最近的变更，targetID 为空时不过滤
func (r *Repo) ListActivity(ctx context.Context, targetID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.DB.WithContext(ctx).Model(&models.ActivityLog{}).Order("created_at DESC").Limit(limit)
	if targetID != "" {
		q = q.Where("target_id = ?", targetID)
	}
	var logs []models.ActivityLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
