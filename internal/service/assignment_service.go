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
	"gorm.io/gorm/clause"
)

// AssignmentService 任务分配服务接口
// 拉取式与批量均分两种分配策略,互斥性由存储层行锁保证
type AssignmentService interface {
	FetchNext(ctx context.Context, actor string) (*model.TaskModel, error)
	Distribute(ctx context.Context, actors []string, quotaPerActor int) (map[string]int, error)
	ReclaimStale(ctx context.Context, ttl time.Duration) (int, error)
}

// Notifier 生命周期事件订阅回调
// 事务提交后触发,投递尽力而为,不保证恰好一次
type Notifier interface {
	PublishEvent(event *model.TaskEventModel)
}

// assignmentService 任务分配服务实现
type assignmentService struct {
	db             *gorm.DB
	taskRepo       repository.TaskRepository
	eventRepo      repository.EventRepository
	assignmentRepo repository.AssignmentRepository
	notifier       Notifier
}

// NewAssignmentService 创建任务分配服务
func NewAssignmentService(db *gorm.DB, notifier Notifier) AssignmentService {
	return &assignmentService{
		db:             db,
		taskRepo:       repository.NewTaskRepository(db),
		eventRepo:      repository.NewEventRepository(db),
		assignmentRepo: repository.NewAssignmentRepository(db),
		notifier:       notifier,
	}
}

// FetchNext 拉取下一个待标注任务
// 候选行按优先级降序、创建时间升序选取;加锁读取跳过已被并发事务锁定的行,
// 两个并发调用者永远不会拿到同一个任务,也不会互相阻塞。
// 没有可用任务时返回 (nil, nil),这不是错误。
func (s *assignmentService) FetchNext(ctx context.Context, actor string) (*model.TaskModel, error) {
	if actor == "" {
		return nil, apperr.NewValidation("actor: required")
	}

	var assigned *model.TaskModel
	var event *model.TaskEventModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidate model.TaskModel
		query := tx.Where("status = ?", model.StatusPending).
			Order("priority DESC").
			Order("created_at ASC").
			Limit(1)
		// PostgreSQL 用 SKIP LOCKED 跳过并发事务已锁定的行;
		// 测试用的 SQLite 不支持该语法,由单连接串行化保证互斥
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := query.Find(&candidate).Error; err != nil {
			return fmt.Errorf("failed to select candidate: %w", err)
		}
		if candidate.ID == "" {
			// 队列已空
			return nil
		}

		now := time.Now()
		task, err := s.taskRepo.CompareAndAssign(tx, candidate.ID, model.StatusPending, func(t *model.TaskModel) {
			t.Status = model.StatusAssigned
			t.AssignedTo = &actor
			t.AssignedAt = &now
		})
		if err != nil {
			return err
		}

		if err := s.assignmentRepo.Save(tx, &model.AssignmentRecordModel{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			Actor:     actor,
			Method:    model.MethodPullQueue,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		event = &model.TaskEventModel{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			Type:      model.EventAssign,
			Actor:     actor,
			Metadata:  []byte(fmt.Sprintf(`{"method":%q}`, model.MethodPullQueue)),
			CreatedAt: now,
		}
		if err := s.eventRepo.Append(tx, event); err != nil {
			return err
		}

		assigned = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	if assigned != nil {
		metrics.RecordTaskAssigned(model.MethodPullQueue)
		s.publish(event)
	}
	return assigned, nil
}

// Distribute 批量均分待标注任务
// 单个事务内完成全部分配,要么全部成功要么全部回滚;
// 任务数不能整除时,余数按标注人列表顺序分给靠前的人。
// quotaPerActor 为 0 表示不设配额。
func (s *assignmentService) Distribute(ctx context.Context, actors []string, quotaPerActor int) (map[string]int, error) {
	if len(actors) == 0 {
		return nil, apperr.NewValidation("actors: required")
	}
	for _, actor := range actors {
		if actor == "" {
			return nil, apperr.NewValidation("actors: empty actor ID")
		}
	}
	if quotaPerActor < 0 {
		return nil, apperr.NewValidation("quota_per_actor: must not be negative")
	}

	counts := make(map[string]int, len(actors))
	for _, actor := range actors {
		counts[actor] = 0
	}

	var events []*model.TaskEventModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []*model.TaskModel
		query := tx.Where("status = ?", model.StatusPending).
			Order("priority DESC").
			Order("created_at ASC")
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := query.Find(&pending).Error; err != nil {
			return fmt.Errorf("failed to snapshot pending tasks: %w", err)
		}

		now := time.Now()
		cursor := 0
		for _, candidate := range pending {
			actor, ok := s.nextActor(actors, counts, quotaPerActor, &cursor)
			if !ok {
				// 全员配额已满
				break
			}

			task, err := s.taskRepo.CompareAndAssign(tx, candidate.ID, model.StatusPending, func(t *model.TaskModel) {
				t.Status = model.StatusAssigned
				t.AssignedTo = &actor
				t.AssignedAt = &now
			})
			if err != nil {
				return err
			}

			if err := s.assignmentRepo.Save(tx, &model.AssignmentRecordModel{
				ID:        uuid.NewString(),
				TaskID:    task.ID,
				Actor:     actor,
				Method:    model.MethodEqualSplit,
				CreatedAt: now,
			}); err != nil {
				return err
			}

			event := &model.TaskEventModel{
				ID:        uuid.NewString(),
				TaskID:    task.ID,
				Type:      model.EventAssign,
				Actor:     actor,
				Metadata:  []byte(fmt.Sprintf(`{"method":%q}`, model.MethodEqualSplit)),
				CreatedAt: now,
			}
			if err := s.eventRepo.Append(tx, event); err != nil {
				return err
			}

			events = append(events, event)
			counts[actor]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		metrics.RecordTaskAssigned(model.MethodEqualSplit)
		s.publish(event)
	}
	return counts, nil
}

// nextActor 轮转选择下一个未达配额的标注人
func (s *assignmentService) nextActor(actors []string, counts map[string]int, quota int, cursor *int) (string, bool) {
	for i := 0; i < len(actors); i++ {
		actor := actors[(*cursor+i)%len(actors)]
		if quota > 0 && counts[actor] >= quota {
			continue
		}
		*cursor = (*cursor + i + 1) % len(actors)
		return actor, true
	}
	return "", false
}

// ReclaimStale 回收滞留的分配
// 将 updated_at 早于 TTL 的 assigned/in_progress 任务放回待分配池,
// 以 system 身份追加 skip 事件。可选的后台清扫,不属于最小正确性契约。
func (s *assignmentService) ReclaimStale(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, apperr.NewValidation("ttl: must be positive")
	}

	cutoff := time.Now().Add(-ttl)
	var stale []*model.TaskModel
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{model.StatusAssigned, model.StatusInProgress}).
		Where("updated_at < ?", cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find stale tasks: %w", err)
	}

	reclaimed := 0
	var events []*model.TaskEventModel
	for _, candidate := range stale {
		expected := candidate.Status
		var event *model.TaskEventModel
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := time.Now()
			task, err := s.taskRepo.CompareAndAssign(tx, candidate.ID, expected, func(t *model.TaskModel) {
				t.Status = model.StatusPending
				t.AssignedTo = nil
				t.SkipCount++
			})
			if err != nil {
				return err
			}

			event = &model.TaskEventModel{
				ID:        uuid.NewString(),
				TaskID:    task.ID,
				Type:      model.EventSkip,
				Actor:     "system",
				Metadata:  []byte(`{"reason":"stale_reclaim"}`),
				CreatedAt: now,
			}
			return s.eventRepo.Append(tx, event)
		})
		if err != nil {
			// 状态已被真正的持有人推进,跳过即可
			if apperr.IsConflict(err) || apperr.IsNotFound(err) {
				continue
			}
			return reclaimed, err
		}
		events = append(events, event)
		reclaimed++
	}

	for _, event := range events {
		s.publish(event)
	}
	return reclaimed, nil
}

// publish 事务提交后广播事件,投递失败不影响调用方
func (s *assignmentService) publish(event *model.TaskEventModel) {
	if s.notifier != nil && event != nil {
		s.notifier.PublishEvent(event)
	}
}
