package model

import (
	"errors"
	"time"
)

// 任务状态枚举
const (
	StatusPending    = "pending"     // 等待分配
	StatusAssigned   = "assigned"    // 已分配,未开始
	StatusInProgress = "in_progress" // 标注中
	StatusCompleted  = "completed"   // 已完成
	StatusSkipped    = "skipped"     // 已跳过
	StatusFailed     = "failed"      // 处理失败
)

// TaskModel 标注任务数据模型
type TaskModel struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RequestID   string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"request_id"` // 外部请求 ID,重复导入时保持稳定
	PayloadRef  string     `gorm:"type:varchar(255);not null" json:"payload_ref"`           // 标注内容引用
	Status      string     `gorm:"type:varchar(32);not null;index" json:"status"`           // 任务状态
	AssignedTo  *string    `gorm:"type:varchar(64);index" json:"assigned_to"`               // 当前持有人,仅 assigned/in_progress 时非空
	Priority    float64    `gorm:"type:decimal(10,6);not null;default:0;index" json:"priority"` // 优先级(例如置信度分数),拉取时降序
	SkipCount   int        `gorm:"type:int;not null;default:0" json:"skip_count"`           // 跳过次数,用于饥饿监控
	AssignedAt  *time.Time `json:"assigned_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	DurationMS  *int64     `json:"duration_ms"` // 提交时计算: completed_at - started_at
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;index" json:"updated_at"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.RequestID == "" {
		return errors.New("request ID is required")
	}
	if tm.PayloadRef == "" {
		return errors.New("payload ref is required")
	}
	if tm.Status == "" {
		return errors.New("task status is required")
	}
	// 持有人与状态必须一致: assigned/in_progress 必须有持有人,其余状态不允许有
	holding := tm.Status == StatusAssigned || tm.Status == StatusInProgress
	if holding && (tm.AssignedTo == nil || *tm.AssignedTo == "") {
		return errors.New("assigned task requires a holder")
	}
	if !holding && tm.AssignedTo != nil {
		return errors.New("non-assigned task must not have a holder")
	}
	return nil
}

// IsTerminal 判断任务是否处于终态
func (tm *TaskModel) IsTerminal() bool {
	return tm.Status == StatusCompleted || tm.Status == StatusFailed
}
