package main

import (
	"fmt"

	"gorm.io/gorm"

	"conductor/internal/database"
	"conductor/internal/models"
	"conductor/pkg/logger"
)

// seedData 初始化种子数据
func seedData(idp models.ExternalIDProvider) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	db := database.GetDB()

	if err := createDefaultAdmin(db, idp); err != nil {
		return fmt.Errorf("创建默认管理员失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createDefaultAdmin 创建默认管理员用户
func createDefaultAdmin(db *gorm.DB, idp models.ExternalIDProvider) error {
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("默认管理员已存在，跳过创建")
		return nil
	}

	admin := &models.User{
		ExternalID: idp.GenerateID(models.ResourceTypeUser, "admin"),
		Username:   "admin",
		Email:      "admin@conductor.local",
		FirstName:  "系统",
		LastName:   "管理员",
		Role:       models.RoleAdmin,
		Status:     models.UserStatusActive,
	}
	if err := admin.SetPassword("Admin@123"); err != nil {
		return err
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	logger.GetLogger().Warn("已创建默认管理员 admin/Admin@123，请立即修改密码")
	return nil
}
