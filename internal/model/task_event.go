package model

import (
	"errors"
	"time"
)

// 生命周期事件类型枚举
const (
	EventAssign    = "assign"     // 任务被分配
	EventStart     = "start"      // 开始标注
	EventDraftSave = "draft_save" // 保存草稿
	EventSubmit    = "submit"     // 提交标注
	EventSkip      = "skip"       // 跳过任务
)

// TaskEventModel 生命周期事件数据模型
// 只追加,不允许修改或删除
type TaskEventModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID    string    `gorm:"type:varchar(64);not null;index" json:"task_id"`
	Type      string    `gorm:"type:varchar(32);not null;index" json:"type"`
	Actor     string    `gorm:"type:varchar(64);not null;index" json:"actor"`
	Metadata  []byte    `gorm:"type:jsonb" json:"metadata"` // 附加信息(跳过原因、分配方式等)
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (TaskEventModel) TableName() string {
	return "task_events"
}

// Validate 验证事件模型
func (em *TaskEventModel) Validate() error {
	if em.ID == "" {
		return errors.New("event ID is required")
	}
	if em.TaskID == "" {
		return errors.New("task ID is required")
	}
	if em.Type == "" {
		return errors.New("event type is required")
	}
	if em.Actor == "" {
		return errors.New("event actor is required")
	}
	return nil
}
