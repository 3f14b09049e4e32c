package container

import (
	"fmt"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/annotation"
	"github.com/Phuduong999/annotation-platform-sub000/internal/config"
	"github.com/Phuduong999/annotation-platform-sub000/internal/database"
	"github.com/Phuduong999/annotation-platform-sub000/internal/metrics"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/Phuduong999/annotation-platform-sub000/internal/websocket"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库连接、服务和后台组件
type Container struct {
	db                *gorm.DB
	hub               *websocket.Hub
	collector         *metrics.Collector
	taskService       service.TaskService
	assignmentService service.AssignmentService
	lifecycleService  service.LifecycleService
	queryService      service.QueryService
	statisticsService service.StatisticsService
	auditLogService   service.AuditLogService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库(带重试机制)
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化 WebSocket hub,作为生命周期事件的通知通道
	hub := websocket.NewHub()
	go hub.Run()

	// 3. 初始化标注字段模式,未配置时使用内置模式
	var schema *annotation.Schema
	if len(cfg.Schema) > 0 {
		schema = annotation.NewSchema(cfg.Schema)
	} else {
		schema = annotation.DefaultSchema()
	}

	// 4. 初始化服务层
	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	taskService := service.NewTaskService(db, auditLogService)
	assignmentService := service.NewAssignmentService(db, hub)
	lifecycleService := service.NewLifecycleService(db, schema, hub)
	queryService := service.NewQueryService(db)
	statisticsService := service.NewStatisticsService(db)

	// 5. 注册指标并启动采集器
	metrics.Register()
	collector := metrics.NewCollector(db, 15*time.Second)
	collector.Start()

	return &Container{
		db:                db,
		hub:               hub,
		collector:         collector,
		taskService:       taskService,
		assignmentService: assignmentService,
		lifecycleService:  lifecycleService,
		queryService:      queryService,
		statisticsService: statisticsService,
		auditLogService:   auditLogService,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskService
}

// AssignmentService 获取分配服务
func (c *Container) AssignmentService() service.AssignmentService {
	return c.assignmentService
}

// LifecycleService 获取生命周期服务
func (c *Container) LifecycleService() service.LifecycleService {
	return c.lifecycleService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsService
}

// AuditLogService 获取审计服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	return nil
}
