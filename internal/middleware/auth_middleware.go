package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/jwt"
	"conductor/pkg/response"
)

// 上下文键
const (
	ContextKeyUser      = "user"
	ContextKeyPrincipal = "principal"
)

// AuthMiddleware 认证中间件
//
// 验证JWT后加载用户及其权限快照，构建授权主体放入请求上下文，
// 后续的评估链只读取这份快照。
type AuthMiddleware struct {
	db          *gorm.DB
	idp         models.ExternalIDProvider
	userService *services.UserService
	perms       *services.PermissionService
	jwtManager  *jwt.JWTManager
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(db *gorm.DB, idp models.ExternalIDProvider) *AuthMiddleware {
	return &AuthMiddleware{
		db:          db,
		idp:         idp,
		userService: services.NewUserService(db, idp),
		perms:       services.NewPermissionService(db),
		jwtManager:  jwt.GetJWTManager(),
	}
}

// RequireLogin 登录检查
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "认证头格式错误")
			c.Abort()
			return
		}

		tokenString := authHeader[7:]

		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		user, err := m.userService.FindByID(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}

		if user.Status != models.UserStatusActive {
			response.Unauthorized(c, "用户已被禁用")
			c.Abort()
			return
		}

		principal, err := m.perms.LoadPrincipal(user)
		if err != nil {
			response.ServerError(c, "加载用户权限失败")
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyPrincipal, principal)

		c.Next()
	}
}

// ChainBuilder 按请求构建评估链
type ChainBuilder func(c *gin.Context, chain *services.EvaluatorChain) *services.EvaluatorChain

// RequireChain 评估链检查，必须在RequireLogin之后使用
func (m *AuthMiddleware) RequireChain(build ChainBuilder) gin.HandlerFunc {
	evaluator := services.NewEvaluator()

	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		chain := build(c, services.NewEvaluatorChain(evaluator))
		if err := chain.Evaluate(principal); err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole 角色检查，管理员直通依然生效
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return m.RequireChain(func(c *gin.Context, chain *services.EvaluatorChain) *services.EvaluatorChain {
		return chain.AddRole(role)
	})
}

// RequireAdmin 管理员检查
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireChain(func(c *gin.Context, chain *services.EvaluatorChain) *services.EvaluatorChain {
		return chain.AddRole(models.RoleAdmin)
	})
}

// GetUser 从上下文取当前用户
func GetUser(c *gin.Context) *models.User {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetPrincipal 从上下文取授权主体
func GetPrincipal(c *gin.Context) *services.Principal {
	v, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return nil
	}
	principal, ok := v.(*services.Principal)
	if !ok {
		return nil
	}
	return principal
}
