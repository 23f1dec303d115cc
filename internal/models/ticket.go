package models

import (
	"time"
)

// Ticket 门票模型
//
// 活动申请单审批通过时为申请人签发。票码用于入场核销。
type Ticket struct {
	BaseModel
	ExternalID string     `json:"external_id" gorm:"uniqueIndex;size:64;not null"`
	Code       string     `json:"code" gorm:"uniqueIndex;size:64;not null"` // 核销票码
	EventID    uint       `json:"event_id" gorm:"not null;index"`
	UserID     uint       `json:"user_id" gorm:"not null;index"`
	Status     string     `json:"status" gorm:"size:20;not null;default:'valid'"`
	IssuedAt   time.Time  `json:"issued_at" gorm:"not null"`
	UsedAt     *time.Time `json:"used_at,omitempty"`

	// 关联
	Event Event `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Ticket) TableName() string {
	return "tickets"
}

// 门票状态常量
const (
	TicketStatusValid     = "valid"     // 有效，未核销
	TicketStatusUsed      = "used"      // 已核销
	TicketStatusCancelled = "cancelled" // 已作废
)

// NewTicket 签发新门票
func NewTicket(externalID, code string, eventID, userID uint) *Ticket {
	return &Ticket{
		ExternalID: externalID,
		Code:       code,
		EventID:    eventID,
		UserID:     userID,
		Status:     TicketStatusValid,
		IssuedAt:   time.Now(),
	}
}

// IsValid 门票是否有效
func (t *Ticket) IsValid() bool {
	return t.Status == TicketStatusValid
}

// MarkUsed 核销门票
func (t *Ticket) MarkUsed() {
	now := time.Now()
	t.Status = TicketStatusUsed
	t.UsedAt = &now
}
