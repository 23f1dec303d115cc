package handlers

import (
	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/services"
	"conductor/pkg/pagination"
	"conductor/pkg/response"
)

// EventApplicationHandler 活动报名申请接口
type EventApplicationHandler struct {
	service *services.EventApplicationService
}

func NewEventApplicationHandler(service *services.EventApplicationService) *EventApplicationHandler {
	return &EventApplicationHandler{service: service}
}

type EventApplyRequest struct {
	EventID      string `json:"event_id" binding:"required"`
	FormResponse string `json:"form_response"`
}

// Apply 报名活动
func (h *EventApplicationHandler) Apply(c *gin.Context) {
	var req EventApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user := middleware.GetUser(c)
	app, err := h.service.Apply(user.ID, req.EventID, req.FormResponse)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "报名申请提交成功", app)
}

// Approve 批准报名并出票
func (h *EventApplicationHandler) Approve(c *gin.Context) {
	user := middleware.GetUser(c)
	ticket, err := h.service.Approve(c.Param("id"), user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "报名已批准，门票已发放", ticket)
}

// Reject 拒绝报名申请
func (h *EventApplicationHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user := middleware.GetUser(c)
	app, err := h.service.Reject(c.Param("id"), user.ID, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "报名已拒绝", app)
}

// Cancel 取消报名申请，仅申请人本人或管理员可操作
func (h *EventApplicationHandler) Cancel(c *gin.Context) {
	externalID := c.Param("id")
	if !requireApplicationAccess(c, externalID) {
		return
	}

	app, err := h.service.Cancel(externalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "报名已取消", app)
}

// Comment 给报名申请追加评论
func (h *EventApplicationHandler) Comment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user := middleware.GetUser(c)
	app, err := h.service.Comment(c.Param("id"), user.ID, req.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "评论已添加", app)
}

// ListByEvent 列出指定活动的全部申请
func (h *EventApplicationHandler) ListByEvent(c *gin.Context) {
	apps, err := h.service.ListByEvent(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, apps)
}

// ListPending 待处理的报名申请
func (h *EventApplicationHandler) ListPending(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	apps, total, err := h.service.ListPending(params)
	if err != nil {
		response.FromError(c, err)
		return
	}

	pageInfo := pagination.NewPageInfo(params.Page, params.PageSize, total)
	response.SuccessWithPage(c, apps, pageInfo)
}
