package api

import (
	"net/http"
	"strconv"

	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/Phuduong999/annotation-platform-sub000/internal/utils"
	"github.com/gin-gonic/gin"
)

// QueryController 查询控制器
type QueryController struct {
	queryService service.QueryService
}

// NewQueryController 创建查询控制器
func NewQueryController(queryService service.QueryService) *QueryController {
	return &QueryController{queryService: queryService}
}

// validateTaskID 验证任务 ID,不合法时写入错误响应
func (qc *QueryController) validateTaskID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateTaskID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid task ID", err.Error())
		return false
	}
	return true
}

// GetTask 获取任务详情
func (qc *QueryController) GetTask(ctx *gin.Context) {
	id := ctx.Param("id")
	if !qc.validateTaskID(ctx, id) {
		return
	}

	task, err := qc.queryService.GetTask(id)
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, task)
}

// ListTasks 分页查询任务
func (qc *QueryController) ListTasks(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	filter := &repository.TaskFilter{}
	if status := ctx.Query("status"); status != "" {
		filter.Status = &status
	}
	if assignedTo := ctx.Query("assigned_to"); assignedTo != "" {
		filter.AssignedTo = &assignedTo
	}

	tasks, total, err := qc.queryService.ListTasks(filter, page, pageSize)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	totalPage := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPage++
	}
	Paginated(ctx, tasks, PaginationInfo{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetEvents 获取任务的生命周期事件
func (qc *QueryController) GetEvents(ctx *gin.Context) {
	id := ctx.Param("id")
	if !qc.validateTaskID(ctx, id) {
		return
	}

	events, err := qc.queryService.GetEvents(id)
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, events)
}

// GetDraft 获取任务草稿
func (qc *QueryController) GetDraft(ctx *gin.Context) {
	id := ctx.Param("id")
	if !qc.validateTaskID(ctx, id) {
		return
	}

	draft, err := qc.queryService.GetDraft(id)
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, draft)
}

// GetAnnotation 获取任务的最终标注
func (qc *QueryController) GetAnnotation(ctx *gin.Context) {
	id := ctx.Param("id")
	if !qc.validateTaskID(ctx, id) {
		return
	}

	annotation, err := qc.queryService.GetFinalAnnotation(id)
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, annotation)
}

// CheckConsistency 事件重放一致性核对
func (qc *QueryController) CheckConsistency(ctx *gin.Context) {
	id := ctx.Param("id")
	if !qc.validateTaskID(ctx, id) {
		return
	}

	report, err := qc.queryService.CheckConsistency(id)
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, report)
}

// GetAssignments 获取任务的分配记录
func (qc *QueryController) GetAssignments(ctx *gin.Context) {
	id := ctx.Param("id")
	if !qc.validateTaskID(ctx, id) {
		return
	}

	records, err := qc.queryService.GetAssignments(id)
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, records)
}
