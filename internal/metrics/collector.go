package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// Collector 指标收集器
// 定期刷新数据库连接数与任务状态分布
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			_ = UpdateTasksByStatus(c.db)
		}
	}
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	SetDatabaseConnections(stats.InUse, stats.Idle)
	return nil
}

// UpdateTasksByStatus 更新任务状态分布指标
func UpdateTasksByStatus(db *gorm.DB) error {
	var results []struct {
		Status string
		Count  int64
	}
	err := db.Model(&model.TaskModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return fmt.Errorf("failed to count tasks by status: %w", err)
	}

	// 先清零,避免已清空的状态残留旧值
	for _, status := range []string{
		model.StatusPending, model.StatusAssigned, model.StatusInProgress,
		model.StatusCompleted, model.StatusSkipped, model.StatusFailed,
	} {
		SetTasksByStatus(status, 0)
	}
	for _, r := range results {
		SetTasksByStatus(r.Status, r.Count)
	}
	return nil
}
