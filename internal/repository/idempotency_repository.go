package repository

import (
	"errors"
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// IdempotencyRepository 幂等键仓储接口
// 提交前查询,与状态变更在同一事务内写入
type IdempotencyRepository interface {
	Find(tx *gorm.DB, taskID string, key string) (*model.IdempotencyKeyModel, error)
	Save(tx *gorm.DB, record *model.IdempotencyKeyModel) error
}

// idempotencyRepository 幂等键仓储实现
type idempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository 创建幂等键仓储
func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

// Find 查找幂等键记录
func (r *idempotencyRepository) Find(tx *gorm.DB, taskID string, key string) (*model.IdempotencyKeyModel, error) {
	var record model.IdempotencyKeyModel
	if err := tx.Where("task_id = ? AND key = ?", taskID, key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find idempotency record: %w", err)
	}
	return &record, nil
}

// Save 保存幂等键记录
func (r *idempotencyRepository) Save(tx *gorm.DB, record *model.IdempotencyKeyModel) error {
	if err := record.Validate(); err != nil {
		return apperr.NewValidation(err.Error())
	}
	if err := tx.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.NewConflict("idempotency key %s already used for task %s", record.Key, record.TaskID)
		}
		return fmt.Errorf("failed to save idempotency record: %w", err)
	}
	return nil
}
