package repository

import (
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓储接口
type AuditLogRepository interface {
	Save(log *model.AuditLogModel) error
	FindByActor(actor string, limit int) ([]*model.AuditLogModel, error)
	FindByTaskID(taskID string) ([]*model.AuditLogModel, error)
}

// auditLogRepository 审计日志仓储实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Save 保存审计日志
func (r *auditLogRepository) Save(log *model.AuditLogModel) error {
	if err := log.Validate(); err != nil {
		return err
	}
	return r.db.Create(log).Error
}

// FindByActor 根据操作人查找审计日志
func (r *auditLogRepository) FindByActor(actor string, limit int) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	err := r.db.Where("actor = ?", actor).Order("created_at DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find audit logs: %w", err)
	}
	return logs, nil
}

// FindByTaskID 根据任务查找审计日志
func (r *auditLogRepository) FindByTaskID(taskID string) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	err := r.db.Where("task_id = ?", taskID).Order("created_at DESC").Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find audit logs: %w", err)
	}
	return logs, nil
}
