package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/Phuduong999/annotation-platform-sub000/internal/utils"
	"github.com/gin-gonic/gin"
)

// TaskController 任务控制器
// 承载导入、分配、生命周期四类变更操作
type TaskController struct {
	taskService       service.TaskService
	assignmentService service.AssignmentService
	lifecycleService  service.LifecycleService
	auditLogService   service.AuditLogService
}

// NewTaskController 创建任务控制器
func NewTaskController(
	taskService service.TaskService,
	assignmentService service.AssignmentService,
	lifecycleService service.LifecycleService,
	auditLogService service.AuditLogService,
) *TaskController {
	return &TaskController{
		taskService:       taskService,
		assignmentService: assignmentService,
		lifecycleService:  lifecycleService,
		auditLogService:   auditLogService,
	}
}

// DistributeRequest 批量均分请求
type DistributeRequest struct {
	Actors        []string `json:"actors" binding:"required"` // 标注人列表,顺序决定余数归属
	QuotaPerActor int      `json:"quota_per_actor"`           // 每人配额,0 表示不限
}

// DraftRequest 保存草稿请求
type DraftRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"` // 标注内容,允许不完整
}

// SubmitRequest 提交标注请求
type SubmitRequest struct {
	Payload        json.RawMessage `json:"payload" binding:"required"` // 标注内容,必须完整
	IdempotencyKey string          `json:"idempotency_key"`            // 幂等键,重试时携带相同值
}

// SkipRequest 跳过任务请求
type SkipRequest struct {
	Reason string `json:"reason" binding:"required"` // 跳过原因,预定义编号或自由文本
}

// ReclaimRequest 滞留任务回收请求
type ReclaimRequest struct {
	TTLMinutes int `json:"ttl_minutes" binding:"required"` // 超过该时长未推进的任务被放回队列
}

// validateTaskID 验证任务 ID,不合法时写入错误响应
func (tc *TaskController) validateTaskID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateTaskID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid task ID", err.Error())
		return false
	}
	return true
}

// audit 记录操作审计,失败不影响主流程
func (tc *TaskController) audit(ctx *gin.Context, action string, taskID string, details string) {
	if tc.auditLogService == nil {
		return
	}
	actor := GetActor(ctx)
	if actor == "" {
		actor = "anonymous"
	}
	_ = tc.auditLogService.RecordAction(ctx.Request.Context(), actor, action, taskID, details)
}

// Create 创建任务
// 导入契约端点: request_id 重复返回 409
func (tc *TaskController) Create(ctx *gin.Context) {
	var req service.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := tc.taskService.Create(ctx.Request.Context(), &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	tc.audit(ctx, "create", task.ID, "")
	Success(ctx, task)
}

// FetchNext 拉取下一个待标注任务
// 队列已空返回 data 为 null 的成功响应,不是错误
func (tc *TaskController) FetchNext(ctx *gin.Context) {
	actor := GetActor(ctx)
	task, err := tc.assignmentService.FetchNext(ctx.Request.Context(), actor)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	if task != nil {
		tc.audit(ctx, "fetch_next", task.ID, "")
	}
	Success(ctx, task)
}

// Distribute 批量均分待标注任务
func (tc *TaskController) Distribute(ctx *gin.Context) {
	var req DistributeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	counts, err := tc.assignmentService.Distribute(ctx.Request.Context(), req.Actors, req.QuotaPerActor)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	details, _ := json.Marshal(counts)
	tc.audit(ctx, "distribute", "", string(details))
	Success(ctx, counts)
}

// Start 开始标注
func (tc *TaskController) Start(ctx *gin.Context) {
	id := ctx.Param("id")
	if !tc.validateTaskID(ctx, id) {
		return
	}

	task, err := tc.lifecycleService.Start(ctx.Request.Context(), id, GetActor(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	tc.audit(ctx, "start", id, "")
	Success(ctx, task)
}

// SaveDraft 保存草稿
func (tc *TaskController) SaveDraft(ctx *gin.Context) {
	id := ctx.Param("id")
	if !tc.validateTaskID(ctx, id) {
		return
	}

	var req DraftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	draft, err := tc.lifecycleService.SaveDraft(ctx.Request.Context(), id, GetActor(ctx), req.Payload)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	tc.audit(ctx, "save_draft", id, "")
	Success(ctx, draft)
}

// Submit 提交标注
func (tc *TaskController) Submit(ctx *gin.Context) {
	id := ctx.Param("id")
	if !tc.validateTaskID(ctx, id) {
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	final, err := tc.lifecycleService.Submit(ctx.Request.Context(), id, GetActor(ctx), req.Payload, req.IdempotencyKey)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	tc.audit(ctx, "submit", id, fmt.Sprintf(`{"annotation_id":%q}`, final.ID))
	Success(ctx, final)
}

// Skip 跳过任务
func (tc *TaskController) Skip(ctx *gin.Context) {
	id := ctx.Param("id")
	if !tc.validateTaskID(ctx, id) {
		return
	}

	var req SkipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := tc.lifecycleService.Skip(ctx.Request.Context(), id, GetActor(ctx), req.Reason)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	tc.audit(ctx, "skip", id, fmt.Sprintf(`{"reason":%q}`, req.Reason))
	Success(ctx, task)
}

// Reclaim 回收滞留任务
// 管理端点: 将超时未推进的任务放回队列,返回回收数量
func (tc *TaskController) Reclaim(ctx *gin.Context) {
	var req ReclaimRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	count, err := tc.assignmentService.ReclaimStale(ctx.Request.Context(), time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	tc.audit(ctx, "reclaim", "", fmt.Sprintf(`{"reclaimed":%d}`, count))
	Success(ctx, gin.H{"reclaimed": count})
}
