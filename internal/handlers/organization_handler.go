package handlers

import (
	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/pagination"
	"conductor/pkg/response"
)

// OrganizationHandler 组织查询与维护接口
type OrganizationHandler struct {
	service   *services.OrganizationService
	evaluator *services.Evaluator
}

func NewOrganizationHandler(service *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		service:   service,
		evaluator: services.NewEvaluator(),
	}
}

// Get 查询组织详情
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.service.FindByExternalID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, org)
}

// List 分页列出已入驻的组织
func (h *OrganizationHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	orgs, total, err := h.service.ListActive(params)
	if err != nil {
		response.FromError(c, err)
		return
	}

	pageInfo := pagination.NewPageInfo(params.Page, params.PageSize, total)
	response.SuccessWithPage(c, orgs, pageInfo)
}

// Update 更新组织资料，要求config写权限
func (h *OrganizationHandler) Update(c *gin.Context) {
	externalID := c.Param("id")

	principal := middleware.GetPrincipal(c)
	chain := services.NewEvaluatorChain(h.evaluator).
		AddPermission(externalID, models.ResourceTypeOrganization,
			models.PermissionMap{models.OrgPrivilegeConfig: models.AccessWrite})
	if err := chain.Evaluate(principal); err != nil {
		response.FromError(c, err)
		return
	}

	var req services.OrganizationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	org, err := h.service.Update(externalID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "组织资料已更新", org)
}

// Audit 查询组织审计汇总，要求audit读权限
func (h *OrganizationHandler) Audit(c *gin.Context) {
	externalID := c.Param("id")

	principal := middleware.GetPrincipal(c)
	chain := services.NewEvaluatorChain(h.evaluator).
		AddPermission(externalID, models.ResourceTypeOrganization,
			models.PermissionMap{models.OrgPrivilegeAudit: models.AccessRead})
	if err := chain.Evaluate(principal); err != nil {
		response.FromError(c, err)
		return
	}

	audit, err := h.service.Audit(externalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, audit)
}

// ListOperators 列出组织的操作员，要求operator写权限
func (h *OrganizationHandler) ListOperators(c *gin.Context) {
	externalID := c.Param("id")

	principal := middleware.GetPrincipal(c)
	chain := services.NewEvaluatorChain(h.evaluator).
		AddPermission(externalID, models.ResourceTypeOrganization,
			models.PermissionMap{models.OrgPrivilegeOperator: models.AccessWrite})
	if err := chain.Evaluate(principal); err != nil {
		response.FromError(c, err)
		return
	}

	operators, err := h.service.ListOperators(externalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, operators)
}
