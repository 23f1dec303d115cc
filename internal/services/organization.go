package services

import (
	stderrors "errors"

	"gorm.io/gorm"

	"conductor/internal/models"
	"conductor/pkg/errors"
	"conductor/pkg/pagination"
)

// OrganizationService 组织查询与维护
type OrganizationService struct {
	db *gorm.DB
}

// NewOrganizationService 创建组织服务
func NewOrganizationService(db *gorm.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

// FindByExternalID 按外部ID查找组织
func (s *OrganizationService) FindByExternalID(externalID string) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.Where("external_id = ?", externalID).First(&org).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "组织"}
		}
		return nil, err
	}
	return &org, nil
}

// ListActive 分页列出已入驻的组织
func (s *OrganizationService) ListActive(params *pagination.PageParams) ([]models.Organization, int64, error) {
	query := s.db.Model(&models.Organization{}).
		Where("status = ?", models.OrganizationStatusActive)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orgs []models.Organization
	err := query.Order("name").
		Offset(params.GetOffset()).Limit(params.GetLimit()).
		Find(&orgs).Error
	return orgs, total, err
}

// OrganizationUpdateRequest 组织资料更新参数
type OrganizationUpdateRequest struct {
	Description string `json:"description"`
	WebsiteURL  string `json:"website_url"`
	Location    string `json:"location"`
}

// Update 更新组织资料，名称与状态不在此处修改
func (s *OrganizationService) Update(externalID string, req *OrganizationUpdateRequest) (*models.Organization, error) {
	org, err := s.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}

	org.Description = req.Description
	org.WebsiteURL = req.WebsiteURL
	org.Location = req.Location
	if err := s.db.Save(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

// Audit 查询组织的审计汇总
func (s *OrganizationService) Audit(externalID string) (*models.OrganizationAudit, error) {
	org, err := s.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}

	var audit models.OrganizationAudit
	if err := s.db.Where("organization_id = ?", org.ID).First(&audit).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "审计记录"}
		}
		return nil, err
	}
	return &audit, nil
}

// ListOperators 列出组织的操作员
func (s *OrganizationService) ListOperators(externalID string) ([]models.Operator, error) {
	org, err := s.FindByExternalID(externalID)
	if err != nil {
		return nil, err
	}

	var operators []models.Operator
	err = s.db.Where("organization_id = ?", org.ID).Find(&operators).Error
	return operators, err
}
