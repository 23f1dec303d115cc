package models

import (
	"time"
)

// Event 活动模型
type Event struct {
	BaseModel
	ExternalID          string     `json:"external_id" gorm:"uniqueIndex;size:64;not null"`
	OrganizationID      uint       `json:"organization_id" gorm:"not null;index"`
	Name                string     `json:"name" gorm:"not null;size:200"`
	Description         string     `json:"description" gorm:"size:1000"`
	Location            string     `json:"location" gorm:"size:255"`
	Status              string     `json:"status" gorm:"size:20;not null;default:'draft'"`
	RequiresApplication bool       `json:"requires_application" gorm:"default:true"` // 参加是否需要提交申请单
	TicketCapacity      int        `json:"ticket_capacity" gorm:"not null;default:0"`
	TicketsSold         int        `json:"tickets_sold" gorm:"not null;default:0;check:tickets_sold <= ticket_capacity"` // 数据库约束防止超卖
	StartAt             *time.Time `json:"start_at"`
	EndAt               *time.Time `json:"end_at"`

	// 关联
	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

// TableName 指定表名
func (Event) TableName() string {
	return "events"
}

// 活动状态常量
const (
	EventStatusDraft     = "draft"     // 草稿，不接受申请
	EventStatusPublished = "published" // 已发布，接受申请
	EventStatusClosed    = "closed"    // 已结束
)

// AcceptsApplications 活动当前是否接受申请
func (e *Event) AcceptsApplications() bool {
	return e.Status == EventStatusPublished
}

// SoldOut 票是否已售完
func (e *Event) SoldOut() bool {
	return e.TicketCapacity > 0 && e.TicketsSold >= e.TicketCapacity
}

// EventOwnerPermissions 活动所有者权限集
// 创建活动或被任命为活动负责人时授予。audit只能read
func EventOwnerPermissions() PermissionMap {
	return PermissionMap{
		EventPrivilegeOperator: AccessWrite,
		EventPrivilegeConfig:   AccessWrite,
		EventPrivilegeTicket:   AccessWrite,
		EventPrivilegeMember:   AccessWrite,
		EventPrivilegeAudit:    AccessRead,
		EventPrivilegeView:     AccessRead,
	}
}
