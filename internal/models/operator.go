package models

// Operator 操作员模型
//
// 组织可以创建操作员账号来承担具体事务（检票、审批等）。
// 操作员对资源的具体权限从权限记录中获取。
type Operator struct {
	BaseModel
	ExternalID     string `json:"external_id" gorm:"uniqueIndex;size:64;not null"`
	UserID         uint   `json:"user_id" gorm:"not null;uniqueIndex"`
	OrganizationID uint   `json:"organization_id" gorm:"not null;index"`

	// 关联
	User         User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

// TableName 指定表名
func (Operator) TableName() string {
	return "operators"
}
