package model

import (
	"errors"
	"time"
)

// IdempotencyKeyModel 幂等键数据模型
// 以 (task_id, key) 为唯一键,记录首次提交的结果,重试时直接返回
type IdempotencyKeyModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_idem_task_key" json:"task_id"`
	Key         string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_idem_task_key" json:"key"`
	PayloadHash string    `gorm:"type:varchar(64);not null" json:"payload_hash"` // 提交内容的 SHA-256,用于识别同键不同内容
	ResultID    string    `gorm:"type:varchar(64);not null" json:"result_id"`    // 首次提交产生的最终标注 ID
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (IdempotencyKeyModel) TableName() string {
	return "idempotency_keys"
}

// Validate 验证幂等键模型
func (im *IdempotencyKeyModel) Validate() error {
	if im.ID == "" {
		return errors.New("idempotency record ID is required")
	}
	if im.TaskID == "" {
		return errors.New("task ID is required")
	}
	if im.Key == "" {
		return errors.New("idempotency key is required")
	}
	if im.PayloadHash == "" {
		return errors.New("payload hash is required")
	}
	if im.ResultID == "" {
		return errors.New("result ID is required")
	}
	return nil
}
