package services

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"conductor/pkg/logger"
)

// PermissionSweeper 过期权限清理调度器
//
// 带过期时间的权限记录在过期后即对评估不可见，这里周期性地把
// 过期记录从存储中物理删除。
type PermissionSweeper struct {
	db       *gorm.DB
	perms    *PermissionService
	cron     *cron.Cron
	cronExpr string
	running  bool
}

// NewPermissionSweeper 创建清理调度器，cronExpr为空时每小时执行一次
func NewPermissionSweeper(db *gorm.DB, cronExpr string) *PermissionSweeper {
	if cronExpr == "" {
		cronExpr = "@hourly"
	}
	return &PermissionSweeper{
		db:       db,
		perms:    NewPermissionService(db),
		cron:     cron.New(),
		cronExpr: cronExpr,
	}
}

// Start 启动调度器
func (s *PermissionSweeper) Start() error {
	if s.running {
		return fmt.Errorf("调度器已经在运行")
	}

	if _, err := s.cron.AddFunc(s.cronExpr, s.sweep); err != nil {
		return fmt.Errorf("注册清理任务失败: %v", err)
	}

	s.cron.Start()
	s.running = true

	logger.GetLogger().Infof("过期权限清理调度器启动成功，调度表达式: %s", s.cronExpr)
	return nil
}

// Stop 停止调度器
func (s *PermissionSweeper) Stop() {
	if !s.running {
		return
	}

	logger.GetLogger().Info("停止过期权限清理调度器")
	s.cron.Stop()
	s.running = false
}

func (s *PermissionSweeper) sweep() {
	deleted, err := s.perms.DeleteExpired()
	if err != nil {
		logger.GetLogger().Errorf("清理过期权限失败: %v", err)
		return
	}
	if deleted > 0 {
		logger.GetLogger().Infof("已清理 %d 条过期权限记录", deleted)
	}
}
