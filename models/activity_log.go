package models

import "time"

const ActivityTable = "inv_activity_log"

// ActivityLog 记录物资/借用变更的审计信息
type ActivityLog struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type      string    `gorm:"size:40;index;not null" json:"type"`
	TargetID  string    `gorm:"size:64;index;not null" json:"targetId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (ActivityLog) TableName() string { return ActivityTable }
