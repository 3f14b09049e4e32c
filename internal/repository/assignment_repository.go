package repository

import (
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// AssignmentRepository 分配记录仓储接口
type AssignmentRepository interface {
	Save(tx *gorm.DB, record *model.AssignmentRecordModel) error
	FindByTaskID(taskID string) ([]*model.AssignmentRecordModel, error)
	FindByActor(actor string, limit int) ([]*model.AssignmentRecordModel, error)
}

// assignmentRepository 分配记录仓储实现
type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository 创建分配记录仓储
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// Save 保存分配记录
// tx 必须是伴随分配动作的事务句柄
func (r *assignmentRepository) Save(tx *gorm.DB, record *model.AssignmentRecordModel) error {
	if err := record.Validate(); err != nil {
		return apperr.NewValidation(err.Error())
	}
	if err := tx.Create(record).Error; err != nil {
		return fmt.Errorf("failed to save assignment record: %w", err)
	}
	return nil
}

// FindByTaskID 根据任务 ID 查找分配记录,按时间升序
func (r *assignmentRepository) FindByTaskID(taskID string) ([]*model.AssignmentRecordModel, error) {
	var records []*model.AssignmentRecordModel
	err := r.db.Where("task_id = ?", taskID).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find assignment records: %w", err)
	}
	return records, nil
}

// FindByActor 根据标注人查找分配记录,按时间降序
func (r *assignmentRepository) FindByActor(actor string, limit int) ([]*model.AssignmentRecordModel, error) {
	var records []*model.AssignmentRecordModel
	err := r.db.Where("actor = ?", actor).Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find assignment records: %w", err)
	}
	return records, nil
}
