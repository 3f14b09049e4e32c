package model_test

import (
	"testing"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestTaskValidateHolderInvariant 持有人与状态必须一致
func TestTaskValidateHolderInvariant(t *testing.T) {
	actor := "alice"

	task := &model.TaskModel{
		ID:         "t1",
		RequestID:  "req-1",
		PayloadRef: "s3://bucket/1",
		Status:     model.StatusAssigned,
	}
	// assigned 但无持有人
	assert.Error(t, task.Validate())

	task.AssignedTo = &actor
	assert.NoError(t, task.Validate())

	// pending 但有持有人
	task.Status = model.StatusPending
	assert.Error(t, task.Validate())

	task.AssignedTo = nil
	assert.NoError(t, task.Validate())

	// completed 不允许残留持有人
	task.Status = model.StatusCompleted
	task.AssignedTo = &actor
	assert.Error(t, task.Validate())
}

// TestTaskValidateRequiredFields 必填字段校验
func TestTaskValidateRequiredFields(t *testing.T) {
	task := &model.TaskModel{}
	assert.Error(t, task.Validate())

	task.ID = "t1"
	assert.Error(t, task.Validate())

	task.RequestID = "req-1"
	assert.Error(t, task.Validate())

	task.PayloadRef = "s3://bucket/1"
	assert.Error(t, task.Validate())

	task.Status = model.StatusPending
	assert.NoError(t, task.Validate())
}

// TestTaskIsTerminal 终态判断
func TestTaskIsTerminal(t *testing.T) {
	task := &model.TaskModel{Status: model.StatusCompleted}
	assert.True(t, task.IsTerminal())

	task.Status = model.StatusFailed
	assert.True(t, task.IsTerminal())

	for _, status := range []string{model.StatusPending, model.StatusAssigned, model.StatusInProgress, model.StatusSkipped} {
		task.Status = status
		assert.False(t, task.IsTerminal(), status)
	}
}

// TestEventValidate 事件必填字段
func TestEventValidate(t *testing.T) {
	event := &model.TaskEventModel{ID: "e1", TaskID: "t1", Type: model.EventAssign, Actor: "alice"}
	assert.NoError(t, event.Validate())

	event.Actor = ""
	assert.Error(t, event.Validate())
}

// TestAssignmentRecordValidate 分配方式枚举校验
func TestAssignmentRecordValidate(t *testing.T) {
	record := &model.AssignmentRecordModel{ID: "r1", TaskID: "t1", Actor: "alice", Method: model.MethodPullQueue}
	assert.NoError(t, record.Validate())

	record.Method = "lottery"
	assert.Error(t, record.Validate())
}
