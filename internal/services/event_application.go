package services

import (
	stderrors "errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"conductor/internal/models"
	"conductor/pkg/errors"
	"conductor/pkg/logger"
	"conductor/pkg/pagination"
)

// EventApplicationService 活动报名申请服务
//
// 参与者对开放报名的活动提交申请，操作员批准后出票。批准、
// 售出数递增与出票在同一事务内完成，数据库检查约束保证不超售。
type EventApplicationService struct {
	db      *gorm.DB
	idp     models.ExternalIDProvider
	manager *ApplicationManager
	log     *logrus.Logger
}

// NewEventApplicationService 创建活动申请服务
func NewEventApplicationService(db *gorm.DB, idp models.ExternalIDProvider) *EventApplicationService {
	return &EventApplicationService{
		db:      db,
		idp:     idp,
		manager: NewApplicationManager(db, idp),
		log:     logger.GetLogger(),
	}
}

// Apply 报名活动
//
// 活动必须存在、开启报名且处于接受报名的状态。同一用户对同一
// 活动只能有一个待处理申请。
func (s *EventApplicationService) Apply(submitterID uint, eventExternalID string, formResponse string) (*models.Application, error) {
	var app *models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("external_id = ?", eventExternalID).First(&event).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return &errors.NotFoundError{What: "活动"}
			}
			return err
		}

		if !event.RequiresApplication {
			return errors.NewValidation("该活动不接受报名申请")
		}
		if !event.AcceptsApplications() {
			return errors.NewValidation("该活动已停止接受报名")
		}

		var err error
		app, err = s.manager.WithTx(tx).Register(
			models.ResourceTypeEvent, event.ExternalID, submitterID, formResponse)
		return err
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Approve 批准报名申请并出票
//
// 售出数递增依赖数据库检查约束防止超售，约束冲突映射为
// ConflictError，此时事务整体回滚，申请保持待处理状态。
func (s *EventApplicationService) Approve(applicationExternalID string, approvedByID uint) (*models.Ticket, error) {
	var ticket *models.Ticket

	err := s.db.Transaction(func(tx *gorm.DB) error {
		manager := s.manager.WithTx(tx)

		app, err := manager.FindByExternalID(applicationExternalID)
		if err != nil {
			return err
		}
		if app.TargetResourceType != models.ResourceTypeEvent {
			return &errors.NotFoundError{What: "活动申请"}
		}

		if _, err := manager.Approve(applicationExternalID, approvedByID); err != nil {
			return err
		}

		var event models.Event
		if err := tx.Where("external_id = ?", app.TargetResourceID).First(&event).Error; err != nil {
			return err
		}
		if event.SoldOut() {
			return &errors.ConflictError{Reason: "活动门票已售罄"}
		}

		// 原子递增，检查约束基于数据库当前值判定，并发批准不会超售
		if err := tx.Model(&event).
			UpdateColumn("tickets_sold", gorm.Expr("tickets_sold + 1")).Error; err != nil {
			if isCheckViolation(err) {
				return &errors.ConflictError{Reason: "活动门票已售罄"}
			}
			return err
		}

		ticket = models.NewTicket(
			s.idp.GenerateID(models.ResourceTypeTicket, ""),
			s.idp.GenerateID(models.ResourceTypeTicket, "code"),
			event.ID, app.SubmittedByID,
		)
		return tx.Create(ticket).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"application": applicationExternalID,
		"ticket":      ticket.ExternalID,
	}).Info("报名申请已批准并出票")

	return ticket, nil
}

// Reject 拒绝报名申请
func (s *EventApplicationService) Reject(applicationExternalID string, rejectedByID uint, reason string) (*models.Application, error) {
	return s.manager.Reject(applicationExternalID, rejectedByID, reason)
}

// Cancel 取消报名申请
func (s *EventApplicationService) Cancel(applicationExternalID string) (*models.Application, error) {
	return s.manager.Cancel(applicationExternalID)
}

// Comment 给报名申请追加评论
func (s *EventApplicationService) Comment(applicationExternalID string, authorID uint, content string) (*models.Application, error) {
	return s.manager.AddComment(applicationExternalID, authorID, content)
}

// ListByEvent 列出指定活动的全部申请
func (s *EventApplicationService) ListByEvent(eventExternalID string) ([]models.Application, error) {
	return s.manager.ListByTargetResource(eventExternalID)
}

// ListPending 列出待处理的报名申请
func (s *EventApplicationService) ListPending(params *pagination.PageParams) ([]models.Application, int64, error) {
	return s.manager.ListPendingByType(models.ResourceTypeEvent, params)
}
