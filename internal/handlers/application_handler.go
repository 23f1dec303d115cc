package handlers

import (
	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/response"
)

// ApplicationHandler 申请查询接口
//
// 申请详情对申请人和管理员可见。
type ApplicationHandler struct {
	manager *services.ApplicationManager
}

func NewApplicationHandler(manager *services.ApplicationManager) *ApplicationHandler {
	return &ApplicationHandler{manager: manager}
}

// requireApplicationAccess 校验当前主体可以操作该申请
//
// 申请人在提交时获得了一条对申请的空权限记录，检查只要求记录
// 存在。管理员走默认放行。校验失败时已写入响应，调用方直接返回。
func requireApplicationAccess(c *gin.Context, externalID string) bool {
	principal := middleware.GetPrincipal(c)
	chain := services.NewEvaluatorChain(services.NewEvaluator()).
		AddPermission(externalID, models.ResourceTypeApplication, models.PermissionMap{})
	if err := chain.Evaluate(principal); err != nil {
		response.FromError(c, err)
		return false
	}
	return true
}

// Get 查询申请详情
func (h *ApplicationHandler) Get(c *gin.Context) {
	externalID := c.Param("id")
	if !requireApplicationAccess(c, externalID) {
		return
	}

	app, err := h.manager.FindByExternalID(externalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, app)
}
