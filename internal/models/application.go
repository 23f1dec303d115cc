package models

import (
	"time"

	"conductor/pkg/errors"
)

// Application 申请单模型
//
// 申请单是一次获取资源的长事务：用户申请注册组织、申请参加活动，
// 都通过申请单走审批流程。审批通过往往意味着新资源的创建和权限授予。
//
// 状态机：pending为初始态，approved/rejected/cancelled为终态，
// 进入终态后不允许任何状态转移。评论不受状态限制，作为自由的
// 沟通与审计记录保留。
type Application struct {
	BaseModel
	ExternalID         string       `json:"external_id" gorm:"uniqueIndex;size:64;not null"`
	TargetResourceType ResourceType `json:"target_resource_type" gorm:"size:30;not null"`
	TargetResourceID   string       `json:"target_resource_id" gorm:"size:64;not null;index"` // 目标资源外部ID
	SubmittedByID      uint         `json:"submitted_by_id" gorm:"not null;index"`
	SubmittedAt        time.Time    `json:"submitted_at" gorm:"not null"`
	Status             string       `json:"status" gorm:"size:20;not null;default:'pending'"`
	ProcessedByID      *uint        `json:"processed_by_id"`
	ProcessedAt        *time.Time   `json:"processed_at,omitempty"`
	FormResponse       string       `json:"form_response,omitempty" gorm:"type:text"` // 申请时提交的表单响应

	// 关联。评论随申请单级联删除，插入顺序有意义
	SubmittedBy User                 `gorm:"foreignKey:SubmittedByID" json:"submitted_by,omitempty"`
	ProcessedBy *User                `gorm:"foreignKey:ProcessedByID" json:"processed_by,omitempty"`
	Comments    []ApplicationComment `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// TableName 指定表名
func (Application) TableName() string {
	return "applications"
}

// 申请单状态常量
const (
	ApplicationStatusPending   = "pending"   // 已提交，等待处理
	ApplicationStatusApproved  = "approved"  // 已批准
	ApplicationStatusRejected  = "rejected"  // 已拒绝
	ApplicationStatusCancelled = "cancelled" // 申请人主动取消
)

// ApplicationComment 申请单评论
type ApplicationComment struct {
	BaseModel
	ApplicationID uint   `json:"application_id" gorm:"not null;index"`
	AuthorID      uint   `json:"author_id" gorm:"not null"`
	Content       string `json:"content" gorm:"type:text;not null"`

	// 关联
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// TableName 指定表名
func (ApplicationComment) TableName() string {
	return "application_comments"
}

// NewApplication 创建新申请单，初始状态为pending
func NewApplication(externalID string, targetType ResourceType, targetResourceID string, submittedByID uint, formResponse string) *Application {
	return &Application{
		ExternalID:         externalID,
		TargetResourceType: targetType,
		TargetResourceID:   targetResourceID,
		SubmittedByID:      submittedByID,
		SubmittedAt:        time.Now(),
		Status:             ApplicationStatusPending,
		FormResponse:       formResponse,
	}
}

// IsPending 是否等待处理
func (a *Application) IsPending() bool {
	return a.Status == ApplicationStatusPending
}

// IsApproved 是否已批准
func (a *Application) IsApproved() bool {
	return a.Status == ApplicationStatusApproved
}

// IsFinal 是否处于终态
func (a *Application) IsFinal() bool {
	switch a.Status {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusCancelled:
		return true
	}
	return false
}

// CanBeProcessed 是否允许审批处理
func (a *Application) CanBeProcessed() bool {
	return a.IsPending()
}

// validateTransition 校验状态转移是否合法
func (a *Application) validateTransition(target string) error {
	if a.IsFinal() {
		return &errors.StateTransitionError{From: a.Status, To: target}
	}
	if !a.CanBeProcessed() {
		return &errors.StateTransitionError{From: a.Status, To: target}
	}
	return nil
}

// Approve 批准申请单
func (a *Application) Approve(approvedByID uint) error {
	if err := a.validateTransition(ApplicationStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	a.Status = ApplicationStatusApproved
	a.ProcessedByID = &approvedByID
	a.ProcessedAt = &now
	return nil
}

// Reject 拒绝申请单，拒绝理由作为评论追加
func (a *Application) Reject(rejectedByID uint, reason string) error {
	if err := a.validateTransition(ApplicationStatusRejected); err != nil {
		return err
	}
	now := time.Now()
	a.Status = ApplicationStatusRejected
	a.ProcessedByID = &rejectedByID
	a.ProcessedAt = &now

	if reason != "" {
		a.Comments = append(a.Comments, ApplicationComment{
			AuthorID: rejectedByID,
			Content:  reason,
		})
	}
	return nil
}

// Cancel 取消申请单
// 调用方负责校验操作者是否为原申请人，模型层不做身份检查
func (a *Application) Cancel() error {
	if err := a.validateTransition(ApplicationStatusCancelled); err != nil {
		return err
	}
	a.Status = ApplicationStatusCancelled
	return nil
}

// PutComment 追加评论，不受申请单状态限制
func (a *Application) PutComment(authorID uint, content string) {
	a.Comments = append(a.Comments, ApplicationComment{
		AuthorID: authorID,
		Content:  content,
	})
}
