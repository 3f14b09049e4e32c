package service

import (
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/lifecycle"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"gorm.io/gorm"
)

// QueryService 查询服务接口
// 只读端点,不参与任何加锁路径
type QueryService interface {
	GetTask(id string) (*model.TaskModel, error)
	ListTasks(filter *repository.TaskFilter, page int, pageSize int) ([]*model.TaskModel, int64, error)
	GetEvents(taskID string) ([]*model.TaskEventModel, error)
	GetDraft(taskID string) (*model.DraftAnnotationModel, error)
	GetFinalAnnotation(taskID string) (*model.FinalAnnotationModel, error)
	GetAssignments(taskID string) ([]*model.AssignmentRecordModel, error)
	CheckConsistency(taskID string) (*ConsistencyReport, error)
}

// ConsistencyReport 事件重放一致性报告
// 按事件日志重放推导的状态应当与存储状态一致
type ConsistencyReport struct {
	TaskID         string `json:"task_id"`
	StoredStatus   string `json:"stored_status"`
	ReplayedStatus string `json:"replayed_status"`
	Consistent     bool   `json:"consistent"`
}

// queryService 查询服务实现
type queryService struct {
	taskRepo       repository.TaskRepository
	eventRepo      repository.EventRepository
	draftRepo      repository.DraftRepository
	finalRepo      repository.FinalRepository
	assignmentRepo repository.AssignmentRepository
}

// NewQueryService 创建查询服务
func NewQueryService(db *gorm.DB) QueryService {
	return &queryService{
		taskRepo:       repository.NewTaskRepository(db),
		eventRepo:      repository.NewEventRepository(db),
		draftRepo:      repository.NewDraftRepository(db),
		finalRepo:      repository.NewFinalRepository(db),
		assignmentRepo: repository.NewAssignmentRepository(db),
	}
}

// GetTask 获取任务详情
func (s *queryService) GetTask(id string) (*model.TaskModel, error) {
	return s.taskRepo.FindByID(id)
}

// ListTasks 分页查询任务
func (s *queryService) ListTasks(filter *repository.TaskFilter, page int, pageSize int) ([]*model.TaskModel, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return s.taskRepo.FindByFilter(filter, pageSize, (page-1)*pageSize)
}

// GetEvents 获取任务的生命周期事件,按时间升序
func (s *queryService) GetEvents(taskID string) ([]*model.TaskEventModel, error) {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		return nil, err
	}
	return s.eventRepo.FindByTaskID(taskID)
}

// GetDraft 获取任务草稿
func (s *queryService) GetDraft(taskID string) (*model.DraftAnnotationModel, error) {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		return nil, err
	}
	return s.draftRepo.FindByTaskID(taskID)
}

// GetFinalAnnotation 获取任务的最终标注
func (s *queryService) GetFinalAnnotation(taskID string) (*model.FinalAnnotationModel, error) {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		return nil, err
	}
	return s.finalRepo.FindByTaskID(taskID)
}

// GetAssignments 获取任务的分配记录
func (s *queryService) GetAssignments(taskID string) ([]*model.AssignmentRecordModel, error) {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		return nil, err
	}
	return s.assignmentRepo.FindByTaskID(taskID)
}

// CheckConsistency 按事件日志重放,核对存储状态
// 用于审计排查,不参与任何写路径
func (s *queryService) CheckConsistency(taskID string) (*ConsistencyReport, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.FindByTaskID(taskID)
	if err != nil {
		return nil, err
	}
	replayed, err := lifecycle.Replay(events)
	if err != nil {
		return nil, fmt.Errorf("failed to replay events: %w", err)
	}
	return &ConsistencyReport{
		TaskID:         taskID,
		StoredStatus:   task.Status,
		ReplayedStatus: replayed,
		Consistent:     replayed == task.Status,
	}, nil
}
