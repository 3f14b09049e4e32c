package repository_test

import (
	"testing"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventAppendAndOrdering 事件按时间升序读取
func TestEventAppendAndOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewEventRepository(db)

	base := time.Now().Add(-time.Minute)
	for i, eventType := range []string{model.EventAssign, model.EventStart, model.EventSubmit} {
		event := &model.TaskEventModel{
			ID:        uuid.NewString(),
			TaskID:    "task-1",
			Type:      eventType,
			Actor:     "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Append(db, event))
	}

	events, err := repo.FindByTaskID("task-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.EventAssign, events[0].Type)
	assert.Equal(t, model.EventStart, events[1].Type)
	assert.Equal(t, model.EventSubmit, events[2].Type)
}

// TestEventAppendRejectsInvalid 非法事件拒绝落库
func TestEventAppendRejectsInvalid(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewEventRepository(db)

	err := repo.Append(db, &model.TaskEventModel{ID: uuid.NewString(), TaskID: "task-1"})
	assert.Error(t, err)
}

// TestDraftUpsertSingleRow 每个任务只保留一条草稿
func TestDraftUpsertSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewDraftRepository(db)

	first := &model.DraftAnnotationModel{
		ID:        uuid.NewString(),
		TaskID:    "task-1",
		Payload:   []byte(`{"sentiment":"positive"}`),
		UpdatedBy: "alice",
		UpdatedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(db, first))

	second := &model.DraftAnnotationModel{
		ID:        uuid.NewString(),
		TaskID:    "task-1",
		Payload:   []byte(`{"sentiment":"negative"}`),
		UpdatedBy: "alice",
		UpdatedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(db, second))

	var count int64
	require.NoError(t, db.Model(&model.DraftAnnotationModel{}).Where("task_id = ?", "task-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	draft, err := repo.FindByTaskID("task-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sentiment":"negative"}`, string(draft.Payload))
}

// TestDraftDeleteByTaskID 删除草稿后查询返回 nil
func TestDraftDeleteByTaskID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewDraftRepository(db)

	draft := &model.DraftAnnotationModel{
		ID:        uuid.NewString(),
		TaskID:    "task-1",
		Payload:   []byte(`{}`),
		UpdatedBy: "alice",
		UpdatedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(db, draft))
	require.NoError(t, repo.DeleteByTaskID(db, "task-1"))

	_, err := repo.FindByTaskID("task-1")
	assert.True(t, apperr.IsNotFound(err))
}

// TestFinalCreateOnce 每个任务最多一条最终标注
func TestFinalCreateOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewFinalRepository(db)

	final := &model.FinalAnnotationModel{
		ID:        uuid.NewString(),
		TaskID:    "task-1",
		Payload:   []byte(`{"sentiment":"positive"}`),
		CreatedBy: "alice",
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(db, final))

	dup := &model.FinalAnnotationModel{
		ID:        uuid.NewString(),
		TaskID:    "task-1",
		Payload:   []byte(`{"sentiment":"negative"}`),
		CreatedBy: "bob",
		CreatedAt: time.Now(),
	}
	err := repo.Create(db, dup)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	count, err := repo.CountByTaskID("task-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// TestIdempotencyFindAndSave 幂等记录按 (task_id, key) 查找
func TestIdempotencyFindAndSave(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)

	record := &model.IdempotencyKeyModel{
		ID:          uuid.NewString(),
		TaskID:      "task-1",
		Key:         "submit-1",
		PayloadHash: "abc123",
		ResultID:    "annotation-1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Save(db, record))

	found, err := repo.Find(db, "task-1", "submit-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", found.PayloadHash)
	assert.Equal(t, "annotation-1", found.ResultID)

	_, err = repo.Find(db, "task-1", "other-key")
	assert.True(t, apperr.IsNotFound(err))
}

// TestIdempotencyDuplicateKey 同一 (task_id, key) 重复写入返回冲突
func TestIdempotencyDuplicateKey(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)

	record := &model.IdempotencyKeyModel{
		ID:          uuid.NewString(),
		TaskID:      "task-1",
		Key:         "submit-1",
		PayloadHash: "abc123",
		ResultID:    "annotation-1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Save(db, record))

	dup := &model.IdempotencyKeyModel{
		ID:          uuid.NewString(),
		TaskID:      "task-1",
		Key:         "submit-1",
		PayloadHash: "def456",
		ResultID:    "annotation-2",
		CreatedAt:   time.Now(),
	}
	err := repo.Save(db, dup)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

// TestAssignmentRecords 分配记录按任务与标注人查询
func TestAssignmentRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAssignmentRepository(db)

	require.NoError(t, repo.Save(db, &model.AssignmentRecordModel{
		ID:        uuid.NewString(),
		TaskID:    "task-1",
		Actor:     "alice",
		Method:    model.MethodPullQueue,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.Save(db, &model.AssignmentRecordModel{
		ID:        uuid.NewString(),
		TaskID:    "task-1",
		Actor:     "bob",
		Method:    model.MethodEqualSplit,
		CreatedAt: time.Now().Add(time.Second),
	}))

	records, err := repo.FindByTaskID("task-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	byActor, err := repo.FindByActor("alice", 10)
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, model.MethodPullQueue, byActor[0].Method)
}
