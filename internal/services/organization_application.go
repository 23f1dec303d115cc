package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"conductor/internal/database"
	"conductor/internal/models"
	"conductor/pkg/errors"
	"conductor/pkg/logger"
	"conductor/pkg/pagination"
)

// OrganizationApplicationService 组织入驻申请服务
//
// 组织入驻从提交申请开始，管理员批准后在同一事务内完成开通：
// 创建空白审计记录、创建持有者账号、创建操作员记录、授予持有者
// 权限集。任一步骤失败整体回滚，不会出现半开通的组织。
type OrganizationApplicationService struct {
	db      *gorm.DB
	idp     models.ExternalIDProvider
	manager *ApplicationManager
	perms   *PermissionService
	log     *logrus.Logger
}

// NewOrganizationApplicationService 创建组织申请服务
func NewOrganizationApplicationService(db *gorm.DB, idp models.ExternalIDProvider) *OrganizationApplicationService {
	return &OrganizationApplicationService{
		db:      db,
		idp:     idp,
		manager: NewApplicationManager(db, idp),
		perms:   NewPermissionService(db),
		log:     logger.GetLogger(),
	}
}

// OrganizationApplicationRequest 组织入驻申请参数
type OrganizationApplicationRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=100"`
	Email        string `json:"email" binding:"required,email"`
	Description  string `json:"description"`
	WebsiteURL   string `json:"website_url"`
	Location     string `json:"location"`
	FormResponse string `json:"form_response"`
}

// Apply 提交组织入驻申请
//
// 一个用户同时只能有一个待处理的组织申请。组织以pending状态
// 入库作为申请的目标资源，批准前对外不可见。
func (s *OrganizationApplicationService) Apply(submitterID uint, req *OrganizationApplicationRequest) (*models.Application, error) {
	var app *models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Application{}).
			Where("submitted_by_id = ? AND target_resource_type = ? AND status = ?",
				submitterID, models.ResourceTypeOrganization, models.ApplicationStatusPending).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &errors.ConflictError{Reason: "已存在待处理的组织申请"}
		}

		if err := tx.Model(&models.Organization{}).
			Where("name = ?", req.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &errors.ConflictError{Reason: "组织名称已被占用"}
		}

		org := &models.Organization{
			ExternalID:  s.idp.GenerateID(models.ResourceTypeOrganization, req.Name),
			Name:        req.Name,
			Email:       req.Email,
			Description: req.Description,
			WebsiteURL:  req.WebsiteURL,
			Location:    req.Location,
			Status:      models.OrganizationStatusPending,
		}
		if err := tx.Create(org).Error; err != nil {
			return err
		}

		var err error
		app, err = s.manager.WithTx(tx).Register(
			models.ResourceTypeOrganization, org.ExternalID, submitterID, req.FormResponse)
		return err
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Approve 批准组织申请并完成开通
//
// 开通与申请状态更新在同一事务内完成。提交后异步投递入驻凭证
// 通知，投递失败只记录日志，不影响已提交的事务。
func (s *OrganizationApplicationService) Approve(applicationExternalID string, approvedByID uint) (*models.Application, error) {
	var app *models.Application
	var org models.Organization
	var ownerPassword string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = s.manager.WithTx(tx).Approve(applicationExternalID, approvedByID)
		if err != nil {
			return err
		}

		if app.TargetResourceType != models.ResourceTypeOrganization {
			return errors.NewValidation("申请目标不是组织")
		}

		if err := tx.Where("external_id = ?", app.TargetResourceID).First(&org).Error; err != nil {
			return err
		}

		ownerPassword, err = s.onboard(tx, &org, approvedByID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifyOnboarding(&org, ownerPassword)
	return app, nil
}

// onboard 组织开通
//
// 激活组织，建立空白审计记录，创建与组织同名的持有者账号，
// 登记操作员并授予持有者权限集。初始密码为组织名加固定后缀，
// 凭证通过通知队列下发，首次登录后应当修改。
func (s *OrganizationApplicationService) onboard(tx *gorm.DB, org *models.Organization, grantedByID uint) (string, error) {
	org.Status = models.OrganizationStatusActive
	if err := tx.Save(org).Error; err != nil {
		return "", err
	}

	if err := tx.Create(models.NewBlankAudit(org.ID)).Error; err != nil {
		return "", err
	}

	password := org.Name + "00xx"
	owner := &models.User{
		ExternalID: s.idp.GenerateID(models.ResourceTypeUser, org.Name),
		Username:   org.Name,
		Email:      org.Email,
		FirstName:  org.Name,
		LastName:   org.Name,
		Role:       models.RoleOperator,
		Status:     models.UserStatusActive,
	}
	if err := owner.SetPassword(password); err != nil {
		return "", err
	}
	if err := tx.Create(owner).Error; err != nil {
		return "", err
	}

	operator := &models.Operator{
		ExternalID:     s.idp.GenerateID(models.ResourceTypeOperator, org.Name),
		UserID:         owner.ID,
		OrganizationID: org.ID,
	}
	if err := tx.Create(operator).Error; err != nil {
		return "", err
	}

	_, err := s.perms.WithTx(tx).Grant(
		&grantedByID, owner.ID,
		models.ResourceTypeOrganization, org.ExternalID,
		models.OrganizationOwnerPermissions(), nil)
	if err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{
		"organization": org.ExternalID,
		"owner":        owner.Username,
	}).Info("组织开通完成")

	return password, nil
}

// notifyOnboarding 投递入驻凭证通知，失败只记录日志
func (s *OrganizationApplicationService) notifyOnboarding(org *models.Organization, password string) {
	q := database.GetRedisQueue()
	if q == nil {
		return
	}
	err := q.Enqueue(
		uuid.NewString(),
		"organization_onboarded",
		org.Email,
		map[string]interface{}{
			"organization": org.Name,
			"username":     org.Name,
			"password":     password,
		},
	)
	if err != nil {
		s.log.WithError(err).WithField("organization", org.ExternalID).
			Warn("入驻通知投递失败")
	}
}

// Reject 拒绝组织申请
func (s *OrganizationApplicationService) Reject(applicationExternalID string, rejectedByID uint, reason string) (*models.Application, error) {
	return s.manager.Reject(applicationExternalID, rejectedByID, reason)
}

// Cancel 取消组织申请
func (s *OrganizationApplicationService) Cancel(applicationExternalID string) (*models.Application, error) {
	return s.manager.Cancel(applicationExternalID)
}

// Comment 给组织申请追加评论
func (s *OrganizationApplicationService) Comment(applicationExternalID string, authorID uint, content string) (*models.Application, error) {
	return s.manager.AddComment(applicationExternalID, authorID, content)
}

// ListPending 列出待处理的组织申请
func (s *OrganizationApplicationService) ListPending(params *pagination.PageParams) ([]models.Application, int64, error) {
	return s.manager.ListPendingByType(models.ResourceTypeOrganization, params)
}
