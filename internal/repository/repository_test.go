package repository_test

import (
	"testing"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/database"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/google/uuid"
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

// newPendingTask 创建一个待分配任务
func newPendingTask(requestID string, priority float64, createdAt time.Time) *model.TaskModel {
	return &model.TaskModel{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		PayloadRef: "s3://bucket/" + requestID,
		Status:     model.StatusPending,
		Priority:   priority,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}
