package model

import (
	"errors"
	"time"
)

// 分配方式枚举
const (
	MethodPullQueue  = "pull_queue"  // 拉取式分配
	MethodEqualSplit = "equal_split" // 批量均分
)

// AssignmentRecordModel 分配记录数据模型
// 每次分配动作一条记录,独立于生命周期事件,便于查询"谁通过什么方式拿到了什么"
type AssignmentRecordModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID    string    `gorm:"type:varchar(64);not null;index" json:"task_id"`
	Actor     string    `gorm:"type:varchar(64);not null;index" json:"actor"`
	Method    string    `gorm:"type:varchar(32);not null;index" json:"method"` // pull_queue/equal_split
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (AssignmentRecordModel) TableName() string {
	return "assignment_records"
}

// Validate 验证分配记录模型
func (am *AssignmentRecordModel) Validate() error {
	if am.ID == "" {
		return errors.New("record ID is required")
	}
	if am.TaskID == "" {
		return errors.New("task ID is required")
	}
	if am.Actor == "" {
		return errors.New("actor is required")
	}
	if am.Method != MethodPullQueue && am.Method != MethodEqualSplit {
		return errors.New("invalid assignment method")
	}
	return nil
}
