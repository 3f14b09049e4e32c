package api

import (
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// StatsController 统计控制器
type StatsController struct {
	statisticsService service.StatisticsService
}

// NewStatsController 创建统计控制器
func NewStatsController(statisticsService service.StatisticsService) *StatsController {
	return &StatsController{statisticsService: statisticsService}
}

// ByStatus 按状态统计任务数量
func (sc *StatsController) ByStatus(ctx *gin.Context) {
	stats, err := sc.statisticsService.GetTaskStatisticsByStatus()
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, stats)
}

// ByAnnotator 按标注人统计完成量与平均耗时
func (sc *StatsController) ByAnnotator(ctx *gin.Context) {
	stats, err := sc.statisticsService.GetAnnotatorStatistics()
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, stats)
}

// Throughput 整体吞吐统计
func (sc *StatsController) Throughput(ctx *gin.Context) {
	stats, err := sc.statisticsService.GetThroughputStatistics()
	if err != nil {
		HandleError(ctx, err)
		return
	}
	Success(ctx, stats)
}
