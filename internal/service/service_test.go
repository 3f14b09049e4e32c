package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/database"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 创建内存数据库
// 单连接串行化所有事务,替代 PostgreSQL 的行锁语义
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// captureNotifier 记录所有广播事件的测试替身
type captureNotifier struct {
	mu     sync.Mutex
	events []*model.TaskEventModel
}

func (n *captureNotifier) PublishEvent(event *model.TaskEventModel) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) Events() []*model.TaskEventModel {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]*model.TaskEventModel, len(n.events))
	copy(result, n.events)
	return result
}

// createTasks 批量创建待分配任务,返回按创建顺序的任务列表
func createTasks(t *testing.T, db *gorm.DB, count int) []*model.TaskModel {
	t.Helper()

	taskSvc := service.NewTaskService(db, nil)
	tasks := make([]*model.TaskModel, 0, count)
	for i := 0; i < count; i++ {
		task, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
			RequestID:  fmt.Sprintf("req-%03d", i),
			PayloadRef: fmt.Sprintf("s3://bucket/item-%03d", i),
		})
		require.NoError(t, err)
		tasks = append(tasks, task)
		// created_at 严格递增,保证拉取顺序可预测
		time.Sleep(time.Millisecond)
	}
	return tasks
}
