package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Create(task *model.TaskModel) error
	FindByID(id string) (*model.TaskModel, error)
	FindByRequestID(requestID string) (*model.TaskModel, error)
	FindByFilter(filter *TaskFilter, limit int, offset int) ([]*model.TaskModel, int64, error)
	FindPending(limit int, offset int) ([]*model.TaskModel, error)
	CompareAndAssign(tx *gorm.DB, id string, expected string, apply func(*model.TaskModel)) (*model.TaskModel, error)
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	Status     *string
	AssignedTo *string
	StartTime  *string
	EndTime    *string
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 创建任务
// request_id 全局唯一,重复导入返回冲突而不是静默合并
func (r *taskRepository) Create(task *model.TaskModel) error {
	if err := task.Validate(); err != nil {
		return apperr.NewValidation(err.Error())
	}

	var count int64
	if err := r.db.Model(&model.TaskModel{}).Where("request_id = ?", task.RequestID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check request ID: %w", err)
	}
	if count > 0 {
		return apperr.NewConflict("request ID %s already exists", task.RequestID)
	}

	if err := r.db.Create(task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.NewConflict("request ID %s already exists", task.RequestID)
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// FindByRequestID 根据外部请求 ID 查找任务
func (r *taskRepository) FindByRequestID(requestID string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.Where("request_id = ?", requestID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// FindByFilter 根据过滤器查找任务(分页)
func (r *taskRepository) FindByFilter(filter *TaskFilter, limit int, offset int) ([]*model.TaskModel, int64, error) {
	query := r.db.Model(&model.TaskModel{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.AssignedTo != nil {
			query = query.Where("assigned_to = ?", *filter.AssignedTo)
		}
		if filter.StartTime != nil {
			query = query.Where("created_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("created_at <= ?", *filter.EndTime)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	var tasks []*model.TaskModel
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find tasks: %w", err)
	}
	return tasks, total, nil
}

// FindPending 查找待分配任务,只读不加锁
// 按优先级降序,同优先级按创建时间升序保证公平
func (r *taskRepository) FindPending(limit int, offset int) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.Where("status = ?", model.StatusPending).
		Order("priority DESC").
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending tasks: %w", err)
	}
	return tasks, nil
}

// CompareAndAssign 比较并变更任务状态
// 唯一的任务变更原语: 在同一事务内完成加锁读取、状态比较和写入,
// 存储状态与期望不符时返回冲突,绝不静默覆盖
func (r *taskRepository) CompareAndAssign(tx *gorm.DB, id string, expected string, apply func(*model.TaskModel)) (*model.TaskModel, error) {
	var task model.TaskModel
	query := tx.Where("id = ?", id)
	// PostgreSQL 使用行锁且不等待,锁不可用立即返回而不是挂起;
	// 测试用的 SQLite 不支持该语法,由单连接串行化保证互斥
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"})
	}
	if err := query.First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		// NOWAIT 抢锁失败视为冲突,调用方不应重试等待
		if strings.Contains(err.Error(), "could not obtain lock") {
			return nil, apperr.NewConflict("task %s is locked by another caller", id)
		}
		return nil, fmt.Errorf("failed to lock task: %w", err)
	}

	if task.Status != expected {
		return nil, apperr.NewConflict("task %s is %s, expected %s", id, task.Status, expected)
	}

	apply(&task)
	task.UpdatedAt = time.Now()
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("task %s invalid after mutation: %w", id, err)
	}
	if err := tx.Save(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return &task, nil
}
