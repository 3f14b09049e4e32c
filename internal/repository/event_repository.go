package repository

import (
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// EventRepository 生命周期事件仓储接口
// 事件只追加,与所伴随的任务变更处于同一事务,不存在独立失败的路径
type EventRepository interface {
	Append(tx *gorm.DB, event *model.TaskEventModel) error
	FindByTaskID(taskID string) ([]*model.TaskEventModel, error)
	FindByActor(actor string, limit int) ([]*model.TaskEventModel, error)
}

// eventRepository 生命周期事件仓储实现
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Append 追加事件
// tx 必须是伴随任务变更的事务句柄
func (r *eventRepository) Append(tx *gorm.DB, event *model.TaskEventModel) error {
	if err := event.Validate(); err != nil {
		return apperr.NewValidation(err.Error())
	}
	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// FindByTaskID 根据任务 ID 查找事件,按时间升序
// 用于审计重建和一致性测试
func (r *eventRepository) FindByTaskID(taskID string) ([]*model.TaskEventModel, error) {
	var events []*model.TaskEventModel
	err := r.db.Where("task_id = ?", taskID).Order("created_at ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	return events, nil
}

// FindByActor 根据操作人查找事件,按时间降序
func (r *eventRepository) FindByActor(actor string, limit int) ([]*model.TaskEventModel, error) {
	var events []*model.TaskEventModel
	err := r.db.Where("actor = ?", actor).Order("created_at DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	return events, nil
}
