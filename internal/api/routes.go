package api

import (
	"net/http"

	"github.com/Phuduong999/annotation-platform-sub000/internal/config"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/Phuduong999/annotation-platform-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Controllers 路由需要的全部控制器
type Controllers struct {
	Task   *TaskController
	Query  *QueryController
	Stats  *StatsController
	Health *HealthController
}

// NewControllers 创建全部控制器
func NewControllers(db *gorm.DB,
	taskService service.TaskService,
	assignmentService service.AssignmentService,
	lifecycleService service.LifecycleService,
	queryService service.QueryService,
	statisticsService service.StatisticsService,
	auditLogService service.AuditLogService,
) *Controllers {
	return &Controllers{
		Task:   NewTaskController(taskService, assignmentService, lifecycleService, auditLogService),
		Query:  NewQueryController(queryService),
		Stats:  NewStatsController(statisticsService),
		Health: NewHealthController(db),
	}
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, controllers *Controllers, hub *websocket.Hub) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())
	if cfg != nil {
		router.Use(CORSMiddleware(&cfg.CORS))
		if cfg.RateLimit.Enabled {
			router.Use(RateLimitMiddleware(&cfg.RateLimit))
		}
	}

	// 健康检查
	router.GET("/health", controllers.Health.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由,按标注人订阅事件流
	if hub != nil {
		router.GET("/ws/events", websocket.Handler(hub))
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		tasks := v1.Group("/tasks")
		{
			// 导入与查询
			tasks.POST("", controllers.Task.Create)
			tasks.GET("", controllers.Query.ListTasks)
			tasks.GET("/:id", controllers.Query.GetTask)
			tasks.GET("/:id/events", controllers.Query.GetEvents)
			tasks.GET("/:id/draft", controllers.Query.GetDraft)
			tasks.GET("/:id/annotation", controllers.Query.GetAnnotation)
			tasks.GET("/:id/assignments", controllers.Query.GetAssignments)
			tasks.GET("/:id/consistency", controllers.Query.CheckConsistency)

			// 分配操作需要标注人身份
			assigned := tasks.Group("")
			assigned.Use(ActorMiddleware(true))
			{
				assigned.POST("/next", controllers.Task.FetchNext)
				assigned.POST("/:id/start", controllers.Task.Start)
				assigned.POST("/:id/draft", controllers.Task.SaveDraft)
				assigned.POST("/:id/submit", controllers.Task.Submit)
				assigned.POST("/:id/skip", controllers.Task.Skip)
			}

			// 管理操作
			tasks.POST("/distribute", controllers.Task.Distribute)
			tasks.POST("/reclaim", controllers.Task.Reclaim)
		}

		stats := v1.Group("/statistics")
		{
			stats.GET("/status", controllers.Stats.ByStatus)
			stats.GET("/annotators", controllers.Stats.ByAnnotator)
			stats.GET("/throughput", controllers.Stats.Throughput)
		}
	}

	// 未匹配的路由返回 JSON 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", c.Request.URL.Path)
	})

	return router
}
