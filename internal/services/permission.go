package services

import (
	"time"

	"conductor/internal/models"
	"conductor/pkg/errors"
	"conductor/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PermissionService 权限服务
//
// 负责权限记录的授予、撤销与查询。所有校验在任何写入之前完成，
// 校验失败不触碰存储。对同一 (用户, 资源类型, 资源ID) 组合的
// 授予合并进唯一一条记录，撤销从这条记录中删除对应的键。
type PermissionService struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewPermissionService 创建权限服务
func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{
		db:  db,
		log: logger.GetLogger(),
	}
}

// WithTx 返回绑定到指定事务的服务副本
func (s *PermissionService) WithTx(tx *gorm.DB) *PermissionService {
	return &PermissionService{db: tx, log: s.log}
}

// Grant 授予权限
//
// 校验请求的权限映射后，为 (用户, 资源类型, 资源ID) 创建唯一的
// 权限记录，或合并进已存在的记录。合并为键并集，冲突键以本次
// 请求的访问级别为准。
func (s *PermissionService) Grant(grantedByID *uint, userID uint, resourceType models.ResourceType, resourceID string, requested models.PermissionMap, expiresAt *time.Time) (*models.Permission, error) {
	if len(requested) == 0 {
		return nil, errors.NewValidation("权限映射不能为空")
	}
	if err := models.ValidatePermissionMap(resourceType, requested); err != nil {
		return nil, err
	}

	var permission *models.Permission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 目标资源必须以所声明的类型存在
		exists, err := s.resourceExists(tx, resourceType, resourceID)
		if err != nil {
			return err
		}
		if !exists {
			return errors.NewValidation("目标资源不存在")
		}

		var existing models.Permission
		err = tx.Where("user_id = ? AND resource_type = ? AND resource_id = ?",
			userID, resourceType, resourceID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			record := &models.Permission{
				UserID:       userID,
				ResourceType: resourceType,
				ResourceID:   resourceID,
				GrantedByID:  grantedByID,
				GrantedAt:    time.Now(),
				ExpiresAt:    expiresAt,
			}
			if err := record.SetMap(requested); err != nil {
				return err
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
			permission = record
			return nil
		}
		if err != nil {
			return err
		}

		current, err := existing.Map()
		if err != nil {
			return err
		}
		if err := existing.SetMap(current.Merge(requested)); err != nil {
			return err
		}
		existing.GrantedByID = grantedByID
		existing.GrantedAt = time.Now()
		existing.ExpiresAt = expiresAt
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		permission = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":       userID,
		"resource_type": resourceType,
		"resource_id":   resourceID,
	}).Info("权限已授予")

	return permission, nil
}

// Revoke 撤销权限
//
// 校验待撤销的权限映射后，从已有记录中删除对应的键。
// 待撤销映射里不存在于记录中的键静默忽略。
func (s *PermissionService) Revoke(userID uint, resourceType models.ResourceType, resourceID string, toRemove models.PermissionMap) (*models.Permission, error) {
	if len(toRemove) == 0 {
		return nil, errors.NewValidation("权限映射不能为空")
	}
	if err := models.ValidatePermissionMap(resourceType, toRemove); err != nil {
		return nil, err
	}

	var permission *models.Permission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Permission
		err := tx.Where("user_id = ? AND resource_type = ? AND resource_id = ?",
			userID, resourceType, resourceID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return &errors.NotFoundError{What: "权限记录"}
		}
		if err != nil {
			return err
		}

		current, err := existing.Map()
		if err != nil {
			return err
		}
		if err := existing.SetMap(current.Diff(toRemove)); err != nil {
			return err
		}
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		permission = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":       userID,
		"resource_type": resourceType,
		"resource_id":   resourceID,
	}).Info("权限已撤销")

	return permission, nil
}

// FindPermission 查询指定用户对指定资源的权限记录
func (s *PermissionService) FindPermission(userID uint, resourceType models.ResourceType, resourceID string) (*models.Permission, error) {
	var permission models.Permission
	err := s.db.Where("user_id = ? AND resource_type = ? AND resource_id = ?",
		userID, resourceType, resourceID).First(&permission).Error
	if err == gorm.ErrRecordNotFound {
		return nil, &errors.NotFoundError{What: "权限记录"}
	}
	if err != nil {
		return nil, err
	}
	return &permission, nil
}

// ListByUser 查询用户的全部权限记录
func (s *PermissionService) ListByUser(userID uint) ([]models.Permission, error) {
	var permissions []models.Permission
	err := s.db.Where("user_id = ?", userID).Order("id").Find(&permissions).Error
	return permissions, err
}

// LoadPrincipal 加载用户的授权主体快照
// 过期的权限记录不进入快照
func (s *PermissionService) LoadPrincipal(user *models.User) (*Principal, error) {
	records, err := s.ListByUser(user.ID)
	if err != nil {
		return nil, err
	}

	principal := &Principal{
		UserID:     user.ID,
		ExternalID: user.ExternalID,
		Username:   user.Username,
		Role:       user.Role,
	}

	now := time.Now()
	for i := range records {
		record := &records[i]
		if record.Expired(now) {
			continue
		}
		m, err := record.Map()
		if err != nil {
			return nil, err
		}
		principal.Permissions = append(principal.Permissions, PrincipalPermission{
			ResourceType:       record.ResourceType,
			ResourceExternalID: record.ResourceID,
			Privileges:         m,
		})
	}

	return principal, nil
}

// DeleteExpired 删除已过期的权限记录，返回删除条数
func (s *PermissionService) DeleteExpired() (int64, error) {
	result := s.db.Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&models.Permission{})
	return result.RowsAffected, result.Error
}

// resourceExists 检查资源是否以所声明的类型存在
func (s *PermissionService) resourceExists(tx *gorm.DB, resourceType models.ResourceType, externalID string) (bool, error) {
	var count int64
	var err error

	switch resourceType {
	case models.ResourceTypeOrganization:
		err = tx.Model(&models.Organization{}).Where("external_id = ?", externalID).Count(&count).Error
	case models.ResourceTypeEvent:
		err = tx.Model(&models.Event{}).Where("external_id = ?", externalID).Count(&count).Error
	default:
		return false, nil
	}

	if err != nil {
		return false, err
	}
	return count > 0, nil
}
