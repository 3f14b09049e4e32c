package model

import (
	"errors"
	"time"
)

// AuditLogModel 审计日志数据模型
// 记录 API 层面的操作审计,独立于生命周期事件
type AuditLogModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Actor     string    `gorm:"type:varchar(64);not null;index" json:"actor"`
	Action    string    `gorm:"type:varchar(64);not null;index" json:"action"` // fetch_next/distribute/start/save_draft/submit/skip
	TaskID    string    `gorm:"type:varchar(64);index" json:"task_id"`
	RequestID string    `gorm:"type:varchar(64);index" json:"request_id"`
	IP        string    `gorm:"type:varchar(45)" json:"ip"` // IPv4 或 IPv6
	Details   []byte    `gorm:"type:jsonb" json:"details"`  // 操作详情
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// Validate 验证审计日志模型
func (alm *AuditLogModel) Validate() error {
	if alm.ID == "" {
		return errors.New("audit log ID is required")
	}
	if alm.Actor == "" {
		return errors.New("actor is required")
	}
	if alm.Action == "" {
		return errors.New("action is required")
	}
	return nil
}
