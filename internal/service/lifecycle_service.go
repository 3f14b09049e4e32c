package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/annotation"
	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/lifecycle"
	"github.com/Phuduong999/annotation-platform-sub000/internal/metrics"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LifecycleService 任务生命周期服务接口
// start/saveDraft/submit/skip 四种迁移,全部通过 CompareAndAssign 原语落库
type LifecycleService interface {
	Start(ctx context.Context, taskID string, actor string) (*model.TaskModel, error)
	SaveDraft(ctx context.Context, taskID string, actor string, payload json.RawMessage) (*model.DraftAnnotationModel, error)
	Submit(ctx context.Context, taskID string, actor string, payload json.RawMessage, idempotencyKey string) (*model.FinalAnnotationModel, error)
	Skip(ctx context.Context, taskID string, actor string, reason string) (*model.TaskModel, error)
}

// lifecycleService 任务生命周期服务实现
type lifecycleService struct {
	db        *gorm.DB
	schema    *annotation.Schema
	taskRepo  repository.TaskRepository
	eventRepo repository.EventRepository
	draftRepo repository.DraftRepository
	finalRepo repository.FinalRepository
	idemRepo  repository.IdempotencyRepository
	notifier  Notifier
}

// NewLifecycleService 创建任务生命周期服务
func NewLifecycleService(db *gorm.DB, schema *annotation.Schema, notifier Notifier) LifecycleService {
	if schema == nil {
		schema = annotation.DefaultSchema()
	}
	return &lifecycleService{
		db:        db,
		schema:    schema,
		taskRepo:  repository.NewTaskRepository(db),
		eventRepo: repository.NewEventRepository(db),
		draftRepo: repository.NewDraftRepository(db),
		finalRepo: repository.NewFinalRepository(db),
		idemRepo:  repository.NewIdempotencyRepository(db),
		notifier:  notifier,
	}
}

// Start 开始标注
// pending 任务自动分配给调用者;assigned 任务由持有人推进到 in_progress;
// 已经 in_progress 且持有人就是调用者时为幂等空操作;
// 被其他人持有时返回冲突,调用方需要与校验错误区分展示。
func (s *lifecycleService) Start(ctx context.Context, taskID string, actor string) (*model.TaskModel, error) {
	if actor == "" {
		return nil, apperr.NewValidation("actor: required")
	}

	var result *model.TaskModel
	var event *model.TaskEventModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}

		switch task.Status {
		case model.StatusPending:
			// 继续下面的迁移
		case model.StatusAssigned, model.StatusInProgress:
			if task.AssignedTo == nil || *task.AssignedTo != actor {
				return apperr.NewConflict("task %s is already in progress by %s", taskID, holderOf(task))
			}
			if task.Status == model.StatusInProgress {
				// 同一持有人重复 start,幂等空操作
				result = task
				return nil
			}
		default:
			return apperr.NewConflict("task %s is %s and cannot be started", taskID, task.Status)
		}

		now := time.Now()
		updated, err := s.taskRepo.CompareAndAssign(tx, taskID, task.Status, func(t *model.TaskModel) {
			t.Status = model.StatusInProgress
			t.AssignedTo = &actor
			if t.AssignedAt == nil {
				t.AssignedAt = &now
			}
			if t.StartedAt == nil {
				t.StartedAt = &now
			}
		})
		if err != nil {
			return err
		}

		event = &model.TaskEventModel{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			Type:      model.EventStart,
			Actor:     actor,
			CreatedAt: now,
		}
		if err := s.eventRepo.Append(tx, event); err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		metrics.RecordLifecycle(model.EventStart)
		s.publish(event)
	}
	return result, nil
}

// SaveDraft 保存草稿
// 仅允许任务持有人在 in_progress 状态下保存;草稿允许必填字段缺失,
// 但已填写字段仍按枚举值集合校验。每个任务最多一条草稿。
func (s *lifecycleService) SaveDraft(ctx context.Context, taskID string, actor string, payload json.RawMessage) (*model.DraftAnnotationModel, error) {
	if actor == "" {
		return nil, apperr.NewValidation("actor: required")
	}
	if err := s.schema.ValidateDraft(payload); err != nil {
		return nil, err
	}

	var draft *model.DraftAnnotationModel
	var event *model.TaskEventModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		if err := requireHolder(task, actor, model.StatusInProgress); err != nil {
			return err
		}

		now := time.Now()
		// 状态不变,但通过变更原语重新校验并刷新 updated_at,
		// 使草稿保存与事件追加处于同一互斥边界内
		if _, err := s.taskRepo.CompareAndAssign(tx, taskID, model.StatusInProgress, func(t *model.TaskModel) {}); err != nil {
			return err
		}

		draft = &model.DraftAnnotationModel{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			Payload:   payload,
			UpdatedBy: actor,
			UpdatedAt: now,
			CreatedAt: now,
		}
		if err := s.draftRepo.Upsert(tx, draft); err != nil {
			return err
		}

		event = &model.TaskEventModel{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			Type:      model.EventDraftSave,
			Actor:     actor,
			CreatedAt: now,
		}
		return s.eventRepo.Append(tx, event)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLifecycle(model.EventDraftSave)
	s.publish(event)
	return draft, nil
}

// Submit 提交标注
// 仅允许任务持有人在 in_progress 状态下提交;内容按固定枚举完整校验,
// 返回全部不合法字段。成功时一次性创建最终标注、删除草稿、落终态、
// 追加 submit 事件,全部在同一事务内。
// 携带幂等键的重试返回首次结果;同键不同内容、以及对已完成任务使用
// 新键,都返回冲突而不是静默复用或覆盖。
func (s *lifecycleService) Submit(ctx context.Context, taskID string, actor string, payload json.RawMessage, idempotencyKey string) (*model.FinalAnnotationModel, error) {
	if actor == "" {
		return nil, apperr.NewValidation("actor: required")
	}

	payloadHash := hashPayload(payload)
	var final *model.FinalAnnotationModel
	var event *model.TaskEventModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}

		// 幂等守卫: 先查键,再做任何状态判断
		if idempotencyKey != "" {
			record, err := s.idemRepo.Find(tx, taskID, idempotencyKey)
			if err != nil && !apperr.IsNotFound(err) {
				return err
			}
			if record != nil {
				if record.PayloadHash != payloadHash {
					return apperr.NewConflict("idempotency key %s was used with a different payload", idempotencyKey)
				}
				stored, err := findFinal(tx, taskID)
				if err != nil {
					return err
				}
				final = stored
				return nil
			}
		}

		if task.Status == model.StatusCompleted {
			return apperr.NewConflict("task %s is already submitted", taskID)
		}
		if err := requireHolder(task, actor, model.StatusInProgress); err != nil {
			return err
		}
		if err := s.schema.ValidateFinal(payload); err != nil {
			return err
		}

		now := time.Now()
		updated, err := s.taskRepo.CompareAndAssign(tx, taskID, model.StatusInProgress, func(t *model.TaskModel) {
			t.Status = model.StatusCompleted
			t.AssignedTo = nil
			t.CompletedAt = &now
			if t.StartedAt != nil {
				duration := now.Sub(*t.StartedAt).Milliseconds()
				t.DurationMS = &duration
			}
		})
		if err != nil {
			return err
		}

		final = &model.FinalAnnotationModel{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			Payload:   payload,
			CreatedBy: actor,
			CreatedAt: now,
		}
		if err := s.finalRepo.Create(tx, final); err != nil {
			return err
		}

		if err := s.draftRepo.DeleteByTaskID(tx, taskID); err != nil {
			return err
		}

		if idempotencyKey != "" {
			if err := s.idemRepo.Save(tx, &model.IdempotencyKeyModel{
				ID:          uuid.NewString(),
				TaskID:      taskID,
				Key:         idempotencyKey,
				PayloadHash: payloadHash,
				ResultID:    final.ID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}

		durationMS := int64(0)
		if updated.DurationMS != nil {
			durationMS = *updated.DurationMS
		}
		event = &model.TaskEventModel{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			Type:      model.EventSubmit,
			Actor:     actor,
			Metadata:  []byte(fmt.Sprintf(`{"annotation_id":%q,"duration_ms":%d}`, final.ID, durationMS)),
			CreatedAt: now,
		}
		return s.eventRepo.Append(tx, event)
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		metrics.RecordLifecycle(model.EventSubmit)
		s.publish(event)
	}
	return final, nil
}

// Skip 跳过任务
// 仅允许持有人跳过非终态任务;原因必填,可以是预定义编号也可以是自由文本。
// 跳过后任务回到待分配池并累加 skip_count,供饥饿监控使用。
func (s *lifecycleService) Skip(ctx context.Context, taskID string, actor string, reason string) (*model.TaskModel, error) {
	if actor == "" {
		return nil, apperr.NewValidation("actor: required")
	}
	if reason == "" {
		return nil, apperr.NewValidation("reason: required")
	}

	var result *model.TaskModel
	var event *model.TaskEventModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		if !lifecycle.CanTransition(task.Status, model.EventSkip) {
			return apperr.NewConflict("task %s is %s and cannot be skipped", taskID, task.Status)
		}
		if task.AssignedTo == nil || *task.AssignedTo != actor {
			return apperr.NewConflict("task %s is held by %s", taskID, holderOf(task))
		}

		now := time.Now()
		updated, err := s.taskRepo.CompareAndAssign(tx, taskID, task.Status, func(t *model.TaskModel) {
			t.Status = model.StatusPending
			t.AssignedTo = nil
			t.SkipCount++
		})
		if err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]string{"reason": reason})
		event = &model.TaskEventModel{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			Type:      model.EventSkip,
			Actor:     actor,
			Metadata:  metadata,
			CreatedAt: now,
		}
		if err := s.eventRepo.Append(tx, event); err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLifecycle(model.EventSkip)
	s.publish(event)
	return result, nil
}

// publish 事务提交后广播事件,投递失败不影响调用方
func (s *lifecycleService) publish(event *model.TaskEventModel) {
	if s.notifier != nil && event != nil {
		s.notifier.PublishEvent(event)
	}
}

// findTask 在事务内读取任务
func findTask(tx *gorm.DB, taskID string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// findFinal 在事务内读取最终标注
func findFinal(tx *gorm.DB, taskID string) (*model.FinalAnnotationModel, error) {
	var annotationModel model.FinalAnnotationModel
	if err := tx.Where("task_id = ?", taskID).First(&annotationModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("idempotency record exists but final annotation missing for task %s", taskID)
		}
		return nil, fmt.Errorf("failed to find final annotation: %w", err)
	}
	return &annotationModel, nil
}

// requireHolder 校验任务处于期望状态且由调用者持有
func requireHolder(task *model.TaskModel, actor string, expected string) error {
	if task.Status != expected {
		return apperr.NewConflict("task %s is %s, expected %s", task.ID, task.Status, expected)
	}
	if task.AssignedTo == nil || *task.AssignedTo != actor {
		return apperr.NewConflict("task %s is held by %s", task.ID, holderOf(task))
	}
	return nil
}

// holderOf 返回持有人标识,无人持有时返回 nobody
func holderOf(task *model.TaskModel) string {
	if task.AssignedTo == nil {
		return "nobody"
	}
	return *task.AssignedTo
}

// hashPayload 计算提交内容的 SHA-256
func hashPayload(payload json.RawMessage) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
