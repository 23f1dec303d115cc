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

// EventService 活动管理
type EventService struct {
	db    *gorm.DB
	idp   models.ExternalIDProvider
	perms *PermissionService
	log   *logrus.Logger
}

// NewEventService 创建活动服务
func NewEventService(db *gorm.DB, idp models.ExternalIDProvider) *EventService {
	return &EventService{
		db:    db,
		idp:   idp,
		perms: NewPermissionService(db),
		log:   logger.GetLogger(),
	}
}

// EventCreateRequest 创建活动参数
type EventCreateRequest struct {
	OrganizationID      string `json:"organization_id" binding:"required"`
	Name                string `json:"name" binding:"required,min=2,max=200"`
	Description         string `json:"description"`
	Location            string `json:"location"`
	RequiresApplication *bool  `json:"requires_application"`
	TicketCapacity      int    `json:"ticket_capacity" binding:"required,min=1"`
	StartAt             string `json:"start_at"`
	EndAt               string `json:"end_at"`
}

// Create 创建活动
//
// 活动以草稿状态创建，创建者获得活动持有者权限集，组织审计
// 的活动计数同步递增，整个过程在一个事务内完成。
func (s *EventService) Create(creatorID uint, req *EventCreateRequest) (*models.Event, error) {
	var event *models.Event

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.Where("external_id = ?", req.OrganizationID).First(&org).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return &errors.NotFoundError{What: "组织"}
			}
			return err
		}
		if org.Status != models.OrganizationStatusActive {
			return errors.NewValidation("组织未处于入驻状态")
		}

		requiresApplication := true
		if req.RequiresApplication != nil {
			requiresApplication = *req.RequiresApplication
		}

		event = &models.Event{
			ExternalID:          s.idp.GenerateID(models.ResourceTypeEvent, req.Name),
			OrganizationID:      org.ID,
			Name:                req.Name,
			Description:         req.Description,
			Location:            req.Location,
			Status:              models.EventStatusDraft,
			RequiresApplication: requiresApplication,
			TicketCapacity:      req.TicketCapacity,
		}
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.OrganizationAudit{}).
			Where("organization_id = ?", org.ID).
			UpdateColumn("total_events", gorm.Expr("total_events + 1")).Error; err != nil {
			return err
		}

		_, err := s.perms.WithTx(tx).Grant(
			&creatorID, creatorID,
			models.ResourceTypeEvent, event.ExternalID,
			models.EventOwnerPermissions(), nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"event": event.ExternalID,
		"name":  event.Name,
	}).Info("活动已创建")

	return event, nil
}

// Publish 发布活动，开始接受报名
func (s *EventService) Publish(externalID string) (*models.Event, error) {
	return s.transition(externalID, models.EventStatusDraft, models.EventStatusPublished)
}

// Close 关闭活动
func (s *EventService) Close(externalID string) (*models.Event, error) {
	return s.transition(externalID, models.EventStatusPublished, models.EventStatusClosed)
}

func (s *EventService) transition(externalID, from, to string) (*models.Event, error) {
	event, err := s.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if event.Status != from {
		return nil, &errors.StateTransitionError{From: event.Status, To: to}
	}

	event.Status = to
	if err := s.db.Save(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// FindByID 按主键查找活动
func (s *EventService) FindByID(id uint) (*models.Event, error) {
	var event models.Event
	if err := s.db.First(&event, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "活动"}
		}
		return nil, err
	}
	return &event, nil
}

// FindByExternalID 按外部ID查找活动
func (s *EventService) FindByExternalID(externalID string) (*models.Event, error) {
	var event models.Event
	if err := s.db.Where("external_id = ?", externalID).First(&event).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "活动"}
		}
		return nil, err
	}
	return &event, nil
}

// ListPublished 分页列出已发布的活动
func (s *EventService) ListPublished(params *pagination.PageParams) ([]models.Event, int64, error) {
	query := s.db.Model(&models.Event{}).
		Where("status = ?", models.EventStatusPublished)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.Event
	err := query.Order("start_at").
		Offset(params.GetOffset()).Limit(params.GetLimit()).
		Find(&events).Error
	return events, total, err
}

// ListByOrganization 列出组织下的全部活动
func (s *EventService) ListByOrganization(orgExternalID string) ([]models.Event, error) {
	var org models.Organization
	if err := s.db.Where("external_id = ?", orgExternalID).First(&org).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "组织"}
		}
		return nil, err
	}

	var events []models.Event
	err := s.db.Where("organization_id = ?", org.ID).Order("id").Find(&events).Error
	return events, err
}
