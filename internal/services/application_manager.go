package services

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"conductor/internal/models"
	"conductor/pkg/errors"
	"conductor/pkg/logger"
	"conductor/pkg/pagination"
)

// ApplicationManager 申请生命周期管理
//
// 只负责申请本身的状态转换与查询，审批通过后的资源开通
// 由各资源专属服务在同一事务中编排。
type ApplicationManager struct {
	db  *gorm.DB
	idp models.ExternalIDProvider
	log *logrus.Logger
}

// NewApplicationManager 创建申请管理器
func NewApplicationManager(db *gorm.DB, idp models.ExternalIDProvider) *ApplicationManager {
	return &ApplicationManager{
		db:  db,
		idp: idp,
		log: logger.GetLogger(),
	}
}

// WithTx 返回绑定到指定事务的管理器副本
func (m *ApplicationManager) WithTx(tx *gorm.DB) *ApplicationManager {
	return &ApplicationManager{db: tx, idp: m.idp, log: m.log}
}

// Register 提交新申请
//
// 同一用户对同一目标资源已有待处理申请时拒绝。先做存在性检查
// 给出友好错误，并发竞争下由数据库部分唯一索引兜底，唯一冲突
// 同样映射为ConflictError。
func (m *ApplicationManager) Register(targetType models.ResourceType, targetResourceID string, submittedByID uint, formResponse string) (*models.Application, error) {
	var count int64
	if err := m.db.Model(&models.Application{}).
		Where("submitted_by_id = ? AND target_resource_id = ? AND status = ?",
			submittedByID, targetResourceID, models.ApplicationStatusPending).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &errors.ConflictError{Reason: "已存在待处理的申请"}
	}

	app := models.NewApplication(
		m.idp.GenerateID(models.ResourceTypeApplication, ""),
		targetType, targetResourceID, submittedByID, formResponse,
	)
	if err := m.db.Create(app).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &errors.ConflictError{Reason: "已存在待处理的申请"}
		}
		return nil, err
	}

	// 给申请人建立一条对该申请的空权限记录。持有记录本身即代表
	// 归属关系，后续访问检查只需确认记录存在，无需比对提交人
	access := &models.Permission{
		UserID:       submittedByID,
		ResourceType: models.ResourceTypeApplication,
		ResourceID:   app.ExternalID,
		GrantedAt:    time.Now(),
	}
	if err := access.SetMap(models.PermissionMap{}); err != nil {
		return nil, err
	}
	if err := m.db.Create(access).Error; err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"application": app.ExternalID,
		"target_type": app.TargetResourceType,
		"target_id":   app.TargetResourceID,
		"user_id":     submittedByID,
	}).Info("申请已提交")

	return app, nil
}

// Approve 批准申请
func (m *ApplicationManager) Approve(externalID string, approvedByID uint) (*models.Application, error) {
	app, err := m.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if err := app.Approve(approvedByID); err != nil {
		return nil, err
	}
	if err := m.save(app); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"application": app.ExternalID,
		"approved_by": approvedByID,
	}).Info("申请已批准")

	return app, nil
}

// Reject 拒绝申请，理由必填并记录为评论
func (m *ApplicationManager) Reject(externalID string, rejectedByID uint, reason string) (*models.Application, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errors.NewValidation("拒绝理由不能为空")
	}

	app, err := m.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if err := app.Reject(rejectedByID, reason); err != nil {
		return nil, err
	}
	if err := m.save(app); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"application": app.ExternalID,
		"rejected_by": rejectedByID,
	}).Info("申请已拒绝")

	return app, nil
}

// Cancel 取消申请
func (m *ApplicationManager) Cancel(externalID string) (*models.Application, error) {
	app, err := m.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if err := app.Cancel(); err != nil {
		return nil, err
	}
	if err := m.save(app); err != nil {
		return nil, err
	}
	return app, nil
}

// AddComment 给申请追加评论，内容必填
//
// 不限制申请状态，已终结的申请仍可追加评论。
func (m *ApplicationManager) AddComment(externalID string, authorID uint, content string) (*models.Application, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.NewValidation("评论内容不能为空")
	}

	app, err := m.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	app.PutComment(authorID, content)
	if err := m.save(app); err != nil {
		return nil, err
	}
	return app, nil
}

// FindByExternalID 按外部ID查找申请，含评论
func (m *ApplicationManager) FindByExternalID(externalID string) (*models.Application, error) {
	var app models.Application
	err := m.db.Preload("Comments").Where("external_id = ?", externalID).First(&app).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "申请"}
		}
		return nil, err
	}
	return &app, nil
}

// ListByTargetResource 列出目标资源的全部申请
func (m *ApplicationManager) ListByTargetResource(targetResourceID string) ([]models.Application, error) {
	var apps []models.Application
	err := m.db.Where("target_resource_id = ?", targetResourceID).
		Order("submitted_at DESC").Find(&apps).Error
	return apps, err
}

// ListPendingByType 列出指定目标类型的待处理申请
func (m *ApplicationManager) ListPendingByType(targetType models.ResourceType, params *pagination.PageParams) ([]models.Application, int64, error) {
	query := m.db.Model(&models.Application{}).
		Where("target_resource_type = ? AND status = ?", targetType, models.ApplicationStatusPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []models.Application
	err := query.Order("submitted_at ASC").
		Offset(params.GetOffset()).Limit(params.GetLimit()).
		Find(&apps).Error
	return apps, total, err
}

func (m *ApplicationManager) save(app *models.Application) error {
	return m.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(app).Error
}

// isUniqueViolation 识别唯一约束冲突
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}

// isCheckViolation 识别检查约束冲突
func isCheckViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "check constraint")
}
