package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/metrics"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskService 任务导入服务接口
// 上游导入进程通过它创建 pending 任务
type TaskService interface {
	Create(ctx context.Context, req *CreateTaskRequest) (*model.TaskModel, error)
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	RequestID  string  `json:"request_id" binding:"required"` // 外部请求 ID,全局唯一
	PayloadRef string  `json:"payload_ref" binding:"required"` // 标注内容引用
	Priority   float64 `json:"priority"`                      // 优先级,如置信度分数
}

// taskService 任务导入服务实现
type taskService struct {
	taskRepo    repository.TaskRepository
	auditLogSvc AuditLogService
}

// NewTaskService 创建任务导入服务
func NewTaskService(db *gorm.DB, auditLogSvc AuditLogService) TaskService {
	return &taskService{
		taskRepo:    repository.NewTaskRepository(db),
		auditLogSvc: auditLogSvc,
	}
}

// Create 创建任务
// request_id 重复时返回冲突,绝不静默合并
func (s *taskService) Create(ctx context.Context, req *CreateTaskRequest) (*model.TaskModel, error) {
	if req.RequestID == "" {
		return nil, apperr.NewValidation("request_id: required")
	}
	if req.PayloadRef == "" {
		return nil, apperr.NewValidation("payload_ref: required")
	}

	now := time.Now()
	task := &model.TaskModel{
		ID:         uuid.NewString(),
		RequestID:  req.RequestID,
		PayloadRef: req.PayloadRef,
		Status:     model.StatusPending,
		Priority:   req.Priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, err
	}

	metrics.RecordTaskCreated()

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"request_id":%q,"priority":%g}`, req.RequestID, req.Priority)
		_ = s.auditLogSvc.RecordAction(ctx, "ingestion", "create", task.ID, details)
	}
	return task, nil
}
