package models

// Organization 组织模型
//
// 组织通过提交申请单注册，审批通过后进入入驻流程：创建审计记录、
// 所有者操作员账号，并授予所有者权限集。
type Organization struct {
	BaseModel
	ExternalID  string `json:"external_id" gorm:"uniqueIndex;size:64;not null"`
	Name        string `json:"name" gorm:"unique;not null;size:100;index"`
	Email       string `json:"email" gorm:"not null;size:100"`
	Description string `json:"description" gorm:"size:500"`
	WebsiteURL  string `json:"website_url" gorm:"size:255"`
	Location    string `json:"location" gorm:"size:255"`
	Status      string `json:"status" gorm:"size:20;not null;default:'pending'"`
}

// TableName 指定表名
func (Organization) TableName() string {
	return "organizations"
}

// 组织状态常量
const (
	OrganizationStatusPending = "pending" // 申请中，未通过审批
	OrganizationStatusActive  = "active"  // 已入驻
	OrganizationStatusClosed  = "closed"  // 已关闭
)

// OrganizationOwnerPermissions 组织所有者权限集
// 入驻时授予所有者操作员账号。audit只能read
func OrganizationOwnerPermissions() PermissionMap {
	return PermissionMap{
		OrgPrivilegeEvent:    AccessWrite,
		OrgPrivilegeOperator: AccessWrite,
		OrgPrivilegeConfig:   AccessWrite,
		OrgPrivilegeAudit:    AccessRead,
	}
}
