package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"conductor/internal/middleware"
	"conductor/internal/services"
	"conductor/pkg/pagination"
	"conductor/pkg/response"
)

// OrganizationApplicationHandler 组织入驻申请接口
type OrganizationApplicationHandler struct {
	service *services.OrganizationApplicationService
}

func NewOrganizationApplicationHandler(service *services.OrganizationApplicationService) *OrganizationApplicationHandler {
	return &OrganizationApplicationHandler{service: service}
}

// Apply 提交组织入驻申请
func (h *OrganizationApplicationHandler) Apply(c *gin.Context) {
	var req services.OrganizationApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 解析验证错误，提供更友好的提示
		if validationErr, ok := err.(validator.ValidationErrors); ok {
			errorMsg := "参数验证失败"
			for _, fieldErr := range validationErr {
				switch fieldErr.Field() {
				case "Name":
					errorMsg = "组织名称不能为空，且长度在2-100个字符之间"
				case "Email":
					errorMsg = "联系邮箱不能为空，且必须是合法的邮箱地址"
				default:
					errorMsg = fmt.Sprintf("字段 %s 验证失败", fieldErr.Field())
				}
				break // 只返回第一个错误
			}
			response.BadRequest(c, errorMsg)
			return
		}
		response.BadRequest(c, "请求参数格式错误")
		return
	}

	user := middleware.GetUser(c)
	app, err := h.service.Apply(user.ID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "申请提交成功", app)
}

// Approve 批准组织申请
func (h *OrganizationApplicationHandler) Approve(c *gin.Context) {
	user := middleware.GetUser(c)
	app, err := h.service.Approve(c.Param("id"), user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "申请已批准，组织开通完成", app)
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject 拒绝组织申请
func (h *OrganizationApplicationHandler) Reject(c *gin.Context) {
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

	response.SuccessWithMessage(c, "申请已拒绝", app)
}

// Cancel 取消组织申请，仅申请人本人或管理员可操作
func (h *OrganizationApplicationHandler) Cancel(c *gin.Context) {
	externalID := c.Param("id")
	if !requireApplicationAccess(c, externalID) {
		return
	}

	app, err := h.service.Cancel(externalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "申请已取消", app)
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// Comment 给申请追加评论
func (h *OrganizationApplicationHandler) Comment(c *gin.Context) {
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

// ListPending 待处理的组织申请
func (h *OrganizationApplicationHandler) ListPending(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	apps, total, err := h.service.ListPending(params)
	if err != nil {
		response.FromError(c, err)
		return
	}

	pageInfo := pagination.NewPageInfo(params.Page, params.PageSize, total)
	response.SuccessWithPage(c, apps, pageInfo)
}
