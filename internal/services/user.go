package services

import (
	stderrors "errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"conductor/internal/models"
	"conductor/pkg/errors"
	"conductor/pkg/jwt"
	"conductor/pkg/logger"
	"conductor/pkg/pagination"
)

// UserService 用户服务
type UserService struct {
	db  *gorm.DB
	idp models.ExternalIDProvider
	log *logrus.Logger
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB, idp models.ExternalIDProvider) *UserService {
	return &UserService{
		db:  db,
		idp: idp,
		log: logger.GetLogger(),
	}
}

// RegisterRequest 用户注册参数
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register 注册普通用户
func (s *UserService) Register(req *RegisterRequest) (*models.User, error) {
	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &errors.ConflictError{Reason: "用户名或邮箱已被占用"}
	}

	user := &models.User{
		ExternalID: s.idp.GenerateID(models.ResourceTypeUser, req.Username),
		Username:   req.Username,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       models.RoleUser,
		Status:     models.UserStatusActive,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}

	s.log.WithField("username", user.Username).Info("用户注册成功")
	return user, nil
}

// Login 用户登录，成功返回JWT令牌
func (s *UserService) Login(username, password string) (string, *models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, &errors.AccessDeniedError{Reason: "用户名或密码错误"}
		}
		return "", nil, err
	}

	if user.Status != models.UserStatusActive {
		return "", nil, &errors.AccessDeniedError{Reason: "账号已被禁用"}
	}
	if !user.CheckPassword(password) {
		return "", nil, &errors.AccessDeniedError{Reason: "用户名或密码错误"}
	}

	token, err := jwt.GetJWTManager().GenerateToken(user.ID, user.ExternalID, user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		s.log.WithError(err).Warn("更新最近登录时间失败")
	}

	return token, &user, nil
}

// FindByID 按主键查找用户
func (s *UserService) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "用户"}
		}
		return nil, err
	}
	return &user, nil
}

// FindByExternalID 按外部ID查找用户
func (s *UserService) FindByExternalID(externalID string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("external_id = ?", externalID).First(&user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errors.NotFoundError{What: "用户"}
		}
		return nil, err
	}
	return &user, nil
}

// List 分页列出用户
func (s *UserService) List(params *pagination.PageParams) ([]models.User, int64, error) {
	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := s.db.Order("id").
		Offset(params.GetOffset()).Limit(params.GetLimit()).
		Find(&users).Error
	return users, total, err
}
