package models

// OrganizationAudit 组织审计记录
//
// 组织入驻时创建一条空白审计记录，随组织活动持续累计。
// audit权限项只能以read级别访问这份数据。
type OrganizationAudit struct {
	BaseModel
	OrganizationID   uint `json:"organization_id" gorm:"not null;uniqueIndex"`
	TotalEvents      int  `json:"total_events" gorm:"not null;default:0"`
	TotalTicketsSold int  `json:"total_tickets_sold" gorm:"not null;default:0"`
	TotalOperators   int  `json:"total_operators" gorm:"not null;default:0"`

	// 关联
	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

// TableName 指定表名
func (OrganizationAudit) TableName() string {
	return "organization_audits"
}

// NewBlankAudit 创建空白审计记录
func NewBlankAudit(organizationID uint) *OrganizationAudit {
	return &OrganizationAudit{
		OrganizationID: organizationID,
	}
}
