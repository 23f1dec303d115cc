package services

import (
	stderrors "errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"conductor/internal/models"
	"conductor/pkg/errors"
	"conductor/pkg/logger"
)

// TicketService 门票查询与核销
type TicketService struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewTicketService 创建门票服务
func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{
		db:  db,
		log: logger.GetLogger(),
	}
}

// FindByCode 按票码查找门票
func (s *TicketService) FindByCode(code string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.Where("code = ?", code).First(&ticket).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "门票"}
		}
		return nil, err
	}
	return &ticket, nil
}

// CheckIn 核销门票
//
// 只有有效状态的门票可以核销，重复核销返回冲突错误。行锁保证
// 并发核销同一张票时只有一次成功。
func (s *TicketService) CheckIn(code string) (*models.Ticket, error) {
	var ticket models.Ticket

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).First(&ticket).Error
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return &errors.NotFoundError{What: "门票"}
			}
			return err
		}

		if !ticket.IsValid() {
			return &errors.ConflictError{Reason: "门票已使用或已作废"}
		}

		ticket.MarkUsed()
		return tx.Save(&ticket).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("ticket", ticket.ExternalID).Info("门票已核销")
	return &ticket, nil
}

// ListByUser 列出用户持有的门票
func (s *TicketService) ListByUser(userID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.Where("user_id = ?", userID).Order("issued_at DESC").Find(&tickets).Error
	return tickets, err
}

// ListByEvent 列出活动已出的门票
func (s *TicketService) ListByEvent(eventID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.Where("event_id = ?", eventID).Order("issued_at").Find(&tickets).Error
	return tickets, err
}
