package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型
type User struct {
	BaseModel
	ExternalID   string     `json:"external_id" gorm:"uniqueIndex;size:64;not null"`
	Username     string     `json:"username" gorm:"unique;not null;size:50;index"`
	Email        string     `json:"email" gorm:"unique;not null;size:100;index"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	FirstName    string     `json:"first_name" gorm:"size:100"`
	LastName     string     `json:"last_name" gorm:"size:100"`
	Role         string     `json:"role" gorm:"size:20;not null;default:'USER'"`
	Status       string     `json:"status" gorm:"default:'active';size:20"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	// 关联
	Permissions []Permission `gorm:"foreignKey:UserID" json:"permissions,omitempty"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户角色常量
const (
	// RoleAdmin 系统管理员，对所有资源拥有write访问
	RoleAdmin = "ADMIN"
	// RoleOperator 组织或活动操作员，具体权限从权限记录中获取
	RoleOperator = "OPERATOR"
	// RoleAPIKey 机器身份，用于集成和自动化
	RoleAPIKey = "API_KEY"
	// RoleUser 普通登录用户
	RoleUser = "USER"
	// RolePublic 匿名用户，只能访问公开资源
	RolePublic = "PUBLIC"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusLocked   = "locked"
)

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsAdmin 是否为系统管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
