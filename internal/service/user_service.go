package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/habitribe/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 在指定用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials 当用户名或密码不匹配时返回
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken 当注册用户名已被占用时返回
	ErrUsernameTaken = errors.New("username already taken")
)

// UserService 负责账号与个人资料
type UserService struct {
	db *gorm.DB
}

// ProfileInput 定义资料更新时可配置字段，nil 表示不修改
type ProfileInput struct {
	DisplayName *string
	Image       *string
}

// NewUserService 构造 UserService
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Register 创建账号，密码以 bcrypt 哈希存储
func (s *UserService) Register(username, password, displayName string) (*db.User, error) {
	trimmedUser := strings.TrimSpace(username)
	if trimmedUser == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	var count int64
	if err := s.db.Model(&db.User{}).Where("username = ?", trimmedUser).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	display := strings.TrimSpace(displayName)
	if display == "" {
		display = trimmedUser
	}

	user := db.User{
		Username:    trimmedUser,
		Password:    string(hashed),
		DisplayName: display,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &user, nil
}

// Authenticate 校验用户名密码，成功返回用户
func (s *UserService) Authenticate(username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// Get 根据 ID 获取用户
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile 部分更新资料，只写入提供了的字段
func (s *UserService) UpdateProfile(id uint, input ProfileInput) (*db.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*input.DisplayName)
	}
	if input.Image != nil {
		updates["image"] = strings.TrimSpace(*input.Image)
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}
