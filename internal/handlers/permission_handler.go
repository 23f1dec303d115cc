package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/response"
)

// PermissionHandler 权限授予与撤销接口
//
// 授予和撤销要求调用者是管理员，或者对目标资源持有operator
// 写权限。检查通过评估链完成，资源信息来自请求体，所以在
// 处理器内构建评估链而不是路由级中间件。
type PermissionHandler struct {
	permService *services.PermissionService
	userService *services.UserService
	evaluator   *services.Evaluator
}

func NewPermissionHandler(permService *services.PermissionService, userService *services.UserService) *PermissionHandler {
	return &PermissionHandler{
		permService: permService,
		userService: userService,
		evaluator:   services.NewEvaluator(),
	}
}

type GrantRequest struct {
	UserExternalID string            `json:"user_id" binding:"required"`
	ResourceType   string            `json:"resource_type" binding:"required"`
	ResourceID     string            `json:"resource_id" binding:"required"`
	Privileges     map[string]string `json:"privileges" binding:"required"`
	ExpiresAt      *time.Time        `json:"expires_at"`
}

type RevokeRequest struct {
	UserExternalID string            `json:"user_id" binding:"required"`
	ResourceType   string            `json:"resource_type" binding:"required"`
	ResourceID     string            `json:"resource_id" binding:"required"`
	Privileges     map[string]string `json:"privileges" binding:"required"`
}

// Grant 授予权限
func (h *PermissionHandler) Grant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resourceType := models.ResourceType(req.ResourceType)
	if err := h.authorize(c, resourceType, req.ResourceID); err != nil {
		response.FromError(c, err)
		return
	}

	target, err := h.userService.FindByExternalID(req.UserExternalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	grantedBy := middleware.GetUser(c)
	perm, err := h.permService.Grant(
		&grantedBy.ID, target.ID,
		resourceType, req.ResourceID,
		toPermissionMap(req.Privileges), req.ExpiresAt)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限授予成功", perm)
}

// Revoke 撤销权限
func (h *PermissionHandler) Revoke(c *gin.Context) {
	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resourceType := models.ResourceType(req.ResourceType)
	if err := h.authorize(c, resourceType, req.ResourceID); err != nil {
		response.FromError(c, err)
		return
	}

	target, err := h.userService.FindByExternalID(req.UserExternalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	perm, err := h.permService.Revoke(
		target.ID, resourceType, req.ResourceID,
		toPermissionMap(req.Privileges))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限撤销成功", perm)
}

// ListByUser 列出用户的全部权限记录，仅限管理员
func (h *PermissionHandler) ListByUser(c *gin.Context) {
	target, err := h.userService.FindByExternalID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	perms, err := h.permService.ListByUser(target.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, perms)
}

// ListMine 列出当前用户的权限记录
func (h *PermissionHandler) ListMine(c *gin.Context) {
	user := middleware.GetUser(c)
	perms, err := h.permService.ListByUser(user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, perms)
}

// authorize 管理员直通，否则要求对目标资源持有operator写权限
func (h *PermissionHandler) authorize(c *gin.Context, resourceType models.ResourceType, resourceID string) error {
	principal := middleware.GetPrincipal(c)

	required := models.PermissionMap{}
	switch resourceType {
	case models.ResourceTypeOrganization:
		required[models.OrgPrivilegeOperator] = models.AccessWrite
	case models.ResourceTypeEvent:
		required[models.EventPrivilegeOperator] = models.AccessWrite
	}

	chain := services.NewEvaluatorChain(h.evaluator).
		AddPermission(resourceID, resourceType, required)
	return chain.Evaluate(principal)
}

func toPermissionMap(raw map[string]string) models.PermissionMap {
	m := make(models.PermissionMap, len(raw))
	for k, v := range raw {
		m[models.Privilege(k)] = models.AccessLevel(v)
	}
	return m
}
