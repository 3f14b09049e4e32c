package service

import (
	"fmt"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetTaskStatisticsByStatus() ([]*TaskStatisticsByStatus, error)
	GetAnnotatorStatistics() ([]*AnnotatorStatistics, error)
	GetThroughputStatistics() (*ThroughputStatistics, error)
}

// TaskStatisticsByStatus 按状态统计
type TaskStatisticsByStatus struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// AnnotatorStatistics 按标注人统计
type AnnotatorStatistics struct {
	Annotator     string  `json:"annotator"`
	CompletedCount int64  `json:"completed_count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// ThroughputStatistics 整体吞吐统计
type ThroughputStatistics struct {
	TotalTasks     int64   `json:"total_tasks"`
	CompletedTasks int64   `json:"completed_tasks"`
	SkippedEvents  int64   `json:"skipped_events"`
	CompletionRate float64 `json:"completion_rate"`
	AvgDurationMS  float64 `json:"avg_duration_ms"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetTaskStatisticsByStatus 按状态统计任务
func (s *statisticsService) GetTaskStatisticsByStatus() ([]*TaskStatisticsByStatus, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := s.db.Model(&model.TaskModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics by status: %w", err)
	}

	stats := make([]*TaskStatisticsByStatus, 0, len(results))
	for _, r := range results {
		stats = append(stats, &TaskStatisticsByStatus{
			Status: r.Status,
			Count:  r.Count,
		})
	}
	return stats, nil
}

// GetAnnotatorStatistics 按标注人统计完成量与平均耗时
func (s *statisticsService) GetAnnotatorStatistics() ([]*AnnotatorStatistics, error) {
	var results []struct {
		CreatedBy     string
		Count         int64
		AvgDurationMS float64
	}

	err := s.db.Model(&model.FinalAnnotationModel{}).
		Select("final_annotations.created_by, COUNT(*) as count, COALESCE(AVG(tasks.duration_ms), 0) as avg_duration_ms").
		Joins("JOIN tasks ON tasks.id = final_annotations.task_id").
		Group("final_annotations.created_by").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get annotator statistics: %w", err)
	}

	stats := make([]*AnnotatorStatistics, 0, len(results))
	for _, r := range results {
		stats = append(stats, &AnnotatorStatistics{
			Annotator:      r.CreatedBy,
			CompletedCount: r.Count,
			AvgDurationMS:  r.AvgDurationMS,
		})
	}
	return stats, nil
}

// GetThroughputStatistics 整体吞吐统计
func (s *statisticsService) GetThroughputStatistics() (*ThroughputStatistics, error) {
	var total, completed int64
	if err := s.db.Model(&model.TaskModel{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	if err := s.db.Model(&model.TaskModel{}).Where("status = ?", model.StatusCompleted).Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	var skipped int64
	if err := s.db.Model(&model.TaskEventModel{}).Where("type = ?", model.EventSkip).Count(&skipped).Error; err != nil {
		return nil, fmt.Errorf("failed to count skip events: %w", err)
	}

	var avgDuration float64
	err := s.db.Model(&model.TaskModel{}).
		Where("status = ? AND duration_ms IS NOT NULL", model.StatusCompleted).
		Select("COALESCE(AVG(duration_ms), 0)").
		Scan(&avgDuration).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute average duration: %w", err)
	}

	stats := &ThroughputStatistics{
		TotalTasks:     total,
		CompletedTasks: completed,
		SkippedEvents:  skipped,
		AvgDurationMS:  avgDuration,
	}
	if total > 0 {
		stats.CompletionRate = float64(completed) / float64(total)
	}
	return stats, nil
}
