package handlers

import (
	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/services"
	"conductor/pkg/response"
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type UserInfo struct {
	ExternalID string `json:"external_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	token, user, err := h.userService.Login(req.Username, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, LoginResponse{
		Token: token,
		User: UserInfo{
			ExternalID: user.ExternalID,
			Username:   user.Username,
			Email:      user.Email,
			Role:       user.Role,
		},
	})
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Register(&req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", UserInfo{
		ExternalID: user.ExternalID,
		Username:   user.Username,
		Email:      user.Email,
		Role:       user.Role,
	})
}

// Profile 当前用户信息
func (h *AuthHandler) Profile(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Unauthorized(c, "请先登录")
		return
	}

	response.Success(c, UserInfo{
		ExternalID: user.ExternalID,
		Username:   user.Username,
		Email:      user.Email,
		Role:       user.Role,
	})
}
