package models

import (
	"github.com/google/uuid"
)

// ResourceType 资源类型，系统中所有可以被授权的资源种类
type ResourceType string

const (
	ResourceTypeOrganization ResourceType = "organization"
	ResourceTypeEvent        ResourceType = "event"
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeOperator     ResourceType = "operator"
	ResourceTypeForm         ResourceType = "form"
	ResourceTypeApplication  ResourceType = "application"
	ResourceTypeTicket       ResourceType = "ticket"
	ResourceTypeFile         ResourceType = "file"
)

// Valid 是否为已知的资源类型
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeOrganization, ResourceTypeEvent, ResourceTypeUser,
		ResourceTypeOperator, ResourceTypeForm, ResourceTypeApplication,
		ResourceTypeTicket, ResourceTypeFile:
		return true
	}
	return false
}

// ExternalIDProvider 外部ID生成器
//
// 负责为所有资源生成全局唯一、不可变的外部标识。外部ID与数据库主键
// 不同，它是跨系统引用资源的唯一方式。每个资源在首次持久化前必须且
// 只能生成一次外部ID。
//
// 生成器本身不做唯一性校验，重复值会在持久化时触发唯一约束冲突。
// 通过构造函数注入到需要创建资源的服务中，可替换为自定义实现
// （如基于上下文提示生成层级化ID）。
type ExternalIDProvider interface {
	// GenerateID 生成全局唯一ID
	// resourceType 为目标资源类型，hint 为生成提示（可为空）
	GenerateID(resourceType ResourceType, hint string) string
}

// DefaultExternalIDProvider 默认外部ID生成器，返回随机UUID
type DefaultExternalIDProvider struct{}

// NewDefaultExternalIDProvider 创建默认外部ID生成器
func NewDefaultExternalIDProvider() *DefaultExternalIDProvider {
	return &DefaultExternalIDProvider{}
}

// GenerateID 生成随机UUID作为外部ID
func (p *DefaultExternalIDProvider) GenerateID(resourceType ResourceType, hint string) string {
	return uuid.NewString()
}
