package handlers

import (
	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/pagination"
	"conductor/pkg/response"
)

// EventHandler 活动管理接口
type EventHandler struct {
	service   *services.EventService
	evaluator *services.Evaluator
}

func NewEventHandler(service *services.EventService) *EventHandler {
	return &EventHandler{
		service:   service,
		evaluator: services.NewEvaluator(),
	}
}

// Create 创建活动，要求对所属组织持有event写权限
func (h *EventHandler) Create(c *gin.Context) {
	var req services.EventCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	principal := middleware.GetPrincipal(c)
	chain := services.NewEvaluatorChain(h.evaluator).
		AddPermission(req.OrganizationID, models.ResourceTypeOrganization,
			models.PermissionMap{models.OrgPrivilegeEvent: models.AccessWrite})
	if err := chain.Evaluate(principal); err != nil {
		response.FromError(c, err)
		return
	}

	user := middleware.GetUser(c)
	event, err := h.service.Create(user.ID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "活动已创建", event)
}

// Publish 发布活动，要求config写权限
func (h *EventHandler) Publish(c *gin.Context) {
	externalID := c.Param("id")
	if err := h.requireConfig(c, externalID); err != nil {
		response.FromError(c, err)
		return
	}

	event, err := h.service.Publish(externalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "活动已发布", event)
}

// Close 关闭活动，要求config写权限
func (h *EventHandler) Close(c *gin.Context) {
	externalID := c.Param("id")
	if err := h.requireConfig(c, externalID); err != nil {
		response.FromError(c, err)
		return
	}

	event, err := h.service.Close(externalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "活动已关闭", event)
}

// Get 查询活动详情
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.service.FindByExternalID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, event)
}

// List 分页列出已发布的活动
func (h *EventHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	events, total, err := h.service.ListPublished(params)
	if err != nil {
		response.FromError(c, err)
		return
	}

	pageInfo := pagination.NewPageInfo(params.Page, params.PageSize, total)
	response.SuccessWithPage(c, events, pageInfo)
}

// ListByOrganization 列出组织下的全部活动
func (h *EventHandler) ListByOrganization(c *gin.Context) {
	events, err := h.service.ListByOrganization(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, events)
}

func (h *EventHandler) requireConfig(c *gin.Context, eventExternalID string) error {
	principal := middleware.GetPrincipal(c)
	chain := services.NewEvaluatorChain(h.evaluator).
		AddPermission(eventExternalID, models.ResourceTypeEvent,
			models.PermissionMap{models.EventPrivilegeConfig: models.AccessWrite})
	return chain.Evaluate(principal)
}
