package model

import (
	"errors"
	"time"
)

// DraftAnnotationModel 草稿标注数据模型
// 每个任务最多一条草稿,任务完成后删除
type DraftAnnotationModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID    string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"task_id"`
	Payload   []byte    `gorm:"type:jsonb;not null" json:"payload"` // 序列化后的标注内容,允许不完整
	UpdatedBy string    `gorm:"type:varchar(64);not null" json:"updated_by"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (DraftAnnotationModel) TableName() string {
	return "draft_annotations"
}

// Validate 验证草稿模型
func (dm *DraftAnnotationModel) Validate() error {
	if dm.ID == "" {
		return errors.New("draft ID is required")
	}
	if dm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if len(dm.Payload) == 0 {
		return errors.New("draft payload is required")
	}
	if dm.UpdatedBy == "" {
		return errors.New("updated by is required")
	}
	return nil
}
