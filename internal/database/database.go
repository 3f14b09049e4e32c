package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/config"
	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(BuildDSN(cfg)), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 10
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 100
	}
	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime == 0 {
		connMaxLifetime = 3600
	}
	connMaxIdleTime := cfg.ConnMaxIdleTime
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 600
	}

	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(connMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接,指数退避
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}
	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动建表
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.TaskModel{},
			&model.DraftAnnotationModel{},
			&model.FinalAnnotationModel{},
			&model.TaskEventModel{},
			&model.AssignmentRecordModel{},
			&model.IdempotencyKeyModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// createSQLiteTables 为 SQLite 手动创建表(使用 TEXT 替代 jsonb)
func createSQLiteTables(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id VARCHAR(64) PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL UNIQUE,
			payload_ref VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			assigned_to VARCHAR(64),
			priority DECIMAL(10,6) NOT NULL DEFAULT 0,
			skip_count INTEGER NOT NULL DEFAULT 0,
			assigned_at DATETIME,
			started_at DATETIME,
			completed_at DATETIME,
			duration_ms INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS draft_annotations (
			id VARCHAR(64) PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL UNIQUE,
			payload TEXT NOT NULL,
			updated_by VARCHAR(64) NOT NULL,
			updated_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create draft_annotations table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS final_annotations (
			id VARCHAR(64) PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL UNIQUE,
			payload TEXT NOT NULL,
			created_by VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create final_annotations table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS task_events (
			id VARCHAR(64) PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL,
			type VARCHAR(32) NOT NULL,
			actor VARCHAR(64) NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create task_events table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS assignment_records (
			id VARCHAR(64) PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL,
			actor VARCHAR(64) NOT NULL,
			method VARCHAR(32) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create assignment_records table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS idempotency_keys (
			id VARCHAR(64) PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL,
			"key" VARCHAR(128) NOT NULL,
			payload_hash VARCHAR(64) NOT NULL,
			result_id VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (task_id, "key")
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create idempotency_keys table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			actor VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			task_id VARCHAR(64),
			request_id VARCHAR(64),
			ip VARCHAR(45),
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// 拉取队列的候选行扫描依赖该复合索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_status_priority ON tasks(status, priority DESC, created_at ASC)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_status_priority: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_assigned_to: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_updated_at ON tasks(updated_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_updated_at: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_task_id ON task_events(task_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_task_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_created_at ON task_events(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_created_at: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_assignments_task_id ON assignment_records(task_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_assignments_task_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_assignments_actor ON assignment_records(actor)").Error; err != nil {
		return fmt.Errorf("failed to create idx_assignments_actor: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_logs(actor)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_actor: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_task_id ON audit_logs(task_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_task_id: %w", err)
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}
