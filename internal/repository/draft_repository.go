package repository

import (
	"errors"
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// DraftRepository 草稿标注仓储接口
type DraftRepository interface {
	Upsert(tx *gorm.DB, draft *model.DraftAnnotationModel) error
	FindByTaskID(taskID string) (*model.DraftAnnotationModel, error)
	DeleteByTaskID(tx *gorm.DB, taskID string) error
}

// draftRepository 草稿标注仓储实现
type draftRepository struct {
	db *gorm.DB
}

// NewDraftRepository 创建草稿仓储
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

// Upsert 保存草稿
// 每个任务最多一条草稿: 已存在则覆盖内容,不存在则创建
func (r *draftRepository) Upsert(tx *gorm.DB, draft *model.DraftAnnotationModel) error {
	if err := draft.Validate(); err != nil {
		return apperr.NewValidation(err.Error())
	}

	var existing model.DraftAnnotationModel
	err := tx.Where("task_id = ?", draft.TaskID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find draft: %w", err)
		}
		if err := tx.Create(draft).Error; err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}
		return nil
	}

	existing.Payload = draft.Payload
	existing.UpdatedBy = draft.UpdatedBy
	existing.UpdatedAt = draft.UpdatedAt
	if err := tx.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	return nil
}

// FindByTaskID 根据任务 ID 查找草稿
func (r *draftRepository) FindByTaskID(taskID string) (*model.DraftAnnotationModel, error) {
	var draft model.DraftAnnotationModel
	if err := r.db.Where("task_id = ?", taskID).First(&draft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find draft: %w", err)
	}
	return &draft, nil
}

// DeleteByTaskID 删除任务的草稿
// 提交成功后在同一事务内调用,保证最终标注存在后草稿不可达
func (r *draftRepository) DeleteByTaskID(tx *gorm.DB, taskID string) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&model.DraftAnnotationModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
