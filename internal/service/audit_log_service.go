package service

import (
	"context"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/google/uuid"
)

// AuditLogService 审计日志服务接口
// 记录 API 层面的操作,失败不影响主流程
type AuditLogService interface {
	RecordAction(ctx context.Context, actor string, action string, taskID string, details string) error
	GetByActor(actor string, limit int) ([]*model.AuditLogModel, error)
	GetByTask(taskID string) ([]*model.AuditLogModel, error)
}

// 审计上下文键
type contextKey string

const (
	// ContextKeyRequestID 请求 ID 上下文键
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeyClientIP 客户端 IP 上下文键
	ContextKeyClientIP contextKey = "client_ip"
)

// auditLogService 审计日志服务实现
type auditLogService struct {
	repo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(repo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{repo: repo}
}

// RecordAction 记录操作
func (s *auditLogService) RecordAction(ctx context.Context, actor string, action string, taskID string, details string) error {
	log := &model.AuditLogModel{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		TaskID:    taskID,
		CreatedAt: time.Now(),
	}
	if details != "" {
		log.Details = []byte(details)
	}
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		log.RequestID = requestID
	}
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		log.IP = ip
	}
	return s.repo.Save(log)
}

// GetByActor 查询操作人的审计日志
func (s *auditLogService) GetByActor(actor string, limit int) ([]*model.AuditLogModel, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.FindByActor(actor, limit)
}

// GetByTask 查询任务的审计日志
func (s *auditLogService) GetByTask(taskID string) ([]*model.AuditLogModel, error) {
	return s.repo.FindByTaskID(taskID)
}
