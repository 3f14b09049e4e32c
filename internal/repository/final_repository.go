package repository

import (
	"errors"
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// FinalRepository 最终标注仓储接口
// 最终标注不可变: 只有创建和读取,没有更新路径
type FinalRepository interface {
	Create(tx *gorm.DB, annotation *model.FinalAnnotationModel) error
	FindByTaskID(taskID string) (*model.FinalAnnotationModel, error)
	CountByTaskID(taskID string) (int64, error)
}

// finalRepository 最终标注仓储实现
type finalRepository struct {
	db *gorm.DB
}

// NewFinalRepository 创建最终标注仓储
func NewFinalRepository(db *gorm.DB) FinalRepository {
	return &finalRepository{db: db}
}

// Create 创建最终标注
// 每个任务只创建一次,已存在即冲突
func (r *finalRepository) Create(tx *gorm.DB, annotation *model.FinalAnnotationModel) error {
	if err := annotation.Validate(); err != nil {
		return apperr.NewValidation(err.Error())
	}

	var count int64
	if err := tx.Model(&model.FinalAnnotationModel{}).Where("task_id = ?", annotation.TaskID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check final annotation: %w", err)
	}
	if count > 0 {
		return apperr.NewConflict("task %s already has a final annotation", annotation.TaskID)
	}

	if err := tx.Create(annotation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.NewConflict("task %s already has a final annotation", annotation.TaskID)
		}
		return fmt.Errorf("failed to create final annotation: %w", err)
	}
	return nil
}

// FindByTaskID 根据任务 ID 查找最终标注
func (r *finalRepository) FindByTaskID(taskID string) (*model.FinalAnnotationModel, error) {
	var annotation model.FinalAnnotationModel
	if err := r.db.Where("task_id = ?", taskID).First(&annotation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find final annotation: %w", err)
	}
	return &annotation, nil
}

// CountByTaskID 统计任务的最终标注条数(用于幂等性验证)
func (r *finalRepository) CountByTaskID(taskID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.FinalAnnotationModel{}).Where("task_id = ?", taskID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count final annotations: %w", err)
	}
	return count, nil
}
