package model

import (
	"errors"
	"time"
)

// FinalAnnotationModel 最终标注数据模型
// 提交时创建一次,之后不可变,只有创建和读取路径
type FinalAnnotationModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID    string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"task_id"`
	Payload   []byte    `gorm:"type:jsonb;not null" json:"payload"` // 序列化后的标注内容,已通过完整性校验
	CreatedBy string    `gorm:"type:varchar(64);not null;index" json:"created_by"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (FinalAnnotationModel) TableName() string {
	return "final_annotations"
}

// Validate 验证最终标注模型
func (fm *FinalAnnotationModel) Validate() error {
	if fm.ID == "" {
		return errors.New("annotation ID is required")
	}
	if fm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if len(fm.Payload) == 0 {
		return errors.New("annotation payload is required")
	}
	if fm.CreatedBy == "" {
		return errors.New("created by is required")
	}
	return nil
}
