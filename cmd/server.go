/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/api"
	"github.com/Phuduong999/annotation-platform-sub000/internal/config"
	"github.com/Phuduong999/annotation-platform-sub000/internal/container"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Annotation Platform API server.
The server will listen on the configured host and port,
and provide REST API interfaces for annotation task routing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 初始化控制器并设置路由
		controllers := api.NewControllers(
			ctr.DB(),
			ctr.TaskService(),
			ctr.AssignmentService(),
			ctr.LifecycleService(),
			ctr.QueryService(),
			ctr.StatisticsService(),
			ctr.AuditLogService(),
		)
		router := api.SetupRoutes(cfg, controllers, ctr.Hub())

		// 4. 可选的滞留任务回收定时器
		reclaimDone := make(chan struct{})
		if cfg.Reclaim.Enabled && cfg.Reclaim.TTLMinutes > 0 {
			go runReclaimLoop(ctr.AssignmentService(), cfg.Reclaim, logger, reclaimDone)
		} else {
			close(reclaimDone)
		}

		// 5. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("failed to start server")
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down server")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Fatal("server forced to shutdown")
		}

		logger.Info("server exited")
		return nil
	},
}

// runReclaimLoop 周期性回收滞留任务
// interval 取 TTL 的一半,保证滞留时间不会超过 TTL 太多
func runReclaimLoop(svc service.AssignmentService, cfg config.ReclaimConfig, logger *logrus.Logger, done <-chan struct{}) {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count, err := svc.ReclaimStale(context.Background(), ttl)
			if err != nil {
				logger.Errorf("reclaim stale tasks failed: %v", err)
				continue
			}
			if count > 0 {
				logger.Infof("reclaimed %d stale tasks", count)
			}
		case <-done:
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
