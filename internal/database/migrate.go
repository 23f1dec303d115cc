package database

import (
	"conductor/internal/models"
	"conductor/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationAudit{},
		&models.Operator{},
		&models.Event{},
		&models.Permission{},
		&models.Application{},
		&models.ApplicationComment{},
		&models.Ticket{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	// 同一申请人对同一目标资源至多一张待处理申请单
	// AutoMigrate不支持部分唯一索引，这里手工建
	err = DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_app_pending
		ON applications (submitted_by_id, target_resource_id)
		WHERE status = 'pending'`).Error
	if err != nil {
		appLogger.Errorf("Create pending application index failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")

	return nil
}
