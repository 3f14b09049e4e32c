package lifecycle

import (
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
)

// transitions 合法状态迁移表
// key 为事件类型,value 为允许触发该事件的起始状态集合
var transitions = map[string]map[string]bool{
	model.EventAssign: {
		model.StatusPending: true,
	},
	model.EventStart: {
		model.StatusPending:    true, // 自动分配给调用者
		model.StatusAssigned:   true,
		model.StatusInProgress: true, // 同一持有人重复 start 为幂等空操作
	},
	model.EventDraftSave: {
		model.StatusInProgress: true,
	},
	model.EventSubmit: {
		model.StatusInProgress: true,
	},
	model.EventSkip: {
		model.StatusAssigned:   true,
		model.StatusInProgress: true,
	},
}

// results 事件发生后的目标状态
var results = map[string]string{
	model.EventAssign:    model.StatusAssigned,
	model.EventStart:     model.StatusInProgress,
	model.EventDraftSave: model.StatusInProgress,
	model.EventSubmit:    model.StatusCompleted,
	model.EventSkip:      model.StatusPending, // 跳过后回到待分配池,不是死路
}

// CanTransition 判断当前状态下是否允许触发事件
func CanTransition(status string, eventType string) bool {
	allowed, ok := transitions[eventType]
	if !ok {
		return false
	}
	return allowed[status]
}

// NextStatus 返回事件发生后的目标状态
func NextStatus(eventType string) (string, error) {
	next, ok := results[eventType]
	if !ok {
		return "", fmt.Errorf("unknown event type: %s", eventType)
	}
	return next, nil
}

// Replay 按事件顺序重放,推导任务当前状态
// 用于审计重建和一致性测试
func Replay(events []*model.TaskEventModel) (string, error) {
	status := model.StatusPending
	for _, ev := range events {
		if !CanTransition(status, ev.Type) {
			return "", fmt.Errorf("event %s illegal from status %s (task %s)", ev.Type, status, ev.TaskID)
		}
		next, err := NextStatus(ev.Type)
		if err != nil {
			return "", err
		}
		status = next
	}
	return status, nil
}
