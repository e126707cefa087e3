// Package user 用户账户：注册、认证、改密和找回。
package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/storage/models"
)

var (
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken 邮箱已被占用
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidCredentials 用户名或密码不正确
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword 密码不满足强度要求
	ErrWeakPassword = errors.New("password does not meet the requirements")
	// ErrPasswordUnchanged 新密码与旧密码相同
	ErrPasswordUnchanged = errors.New("new password must differ from the old one")
)

// passwordSpecials 密码必须包含其中至少一个特殊字符
const passwordSpecials = "!?_$£-"

// Store 用户持久化接口，由MySQL存储实现
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, username string, passwordDigest string) error
}

var _ Store = (*storage.MySQL)(nil)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
}

// Service 用户账户服务
type Service struct {
	store    Store
	validate *validator.Validate
}

// NewService 创建用户服务
func NewService(store Store) (*Service, error) {
	v := validator.New()
	if err := v.RegisterValidation("strong_password", validateStrongPassword); err != nil {
		return nil, fmt.Errorf("注册密码校验规则失败: %w", err)
	}
	return &Service{store: store, validate: v}, nil
}

// validateStrongPassword 密码规则：至少6位，含数字、大写字母和指定特殊字符
func validateStrongPassword(fl validator.FieldLevel) bool {
	return PasswordMeetsRules(fl.Field().String())
}

// PasswordMeetsRules 检查密码强度规则。长度按字符数而不是字节数算，
// 否则带£这类多字节字符的短密码会被放行。
func PasswordMeetsRules(password string) bool {
	if utf8.RuneCountInString(password) < 6 {
		return false
	}
	var hasDigit, hasUpper, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}
	return hasDigit && hasUpper && hasSpecial
}

// HashPassword 计算密码的SHA-256十六进制摘要
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register 注册新用户。用户名和邮箱都必须未被占用。
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "strong_password" {
					return nil, ErrWeakPassword
				}
			}
		}
		return nil, fmt.Errorf("注册请求不合法: %w", err)
	}

	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, err
	}

	u := &models.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordDigest: HashPassword(req.Password),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	logger.Info().Str("username", u.Username).Msg("新用户注册成功")
	return u, nil
}

// Authenticate 校验用户名和密码。不存在的用户和密码错误返回同一个错误，
// 避免泄露用户是否存在。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordDigest != HashPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword 修改密码。必须先通过旧凭证认证，新密码不能与旧密码相同，
// 且必须满足强度规则。
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if _, err := s.Authenticate(ctx, username, oldPassword); err != nil {
		return err
	}
	if newPassword == oldPassword {
		return ErrPasswordUnchanged
	}
	if !PasswordMeetsRules(newPassword) {
		return ErrWeakPassword
	}
	return s.store.UpdateUserPassword(ctx, username, HashPassword(newPassword))
}

// RecoverPassword 找回密码：按邮箱生成临时密码并立即生效，返回临时密码。
// 临时密码不保证满足常规强度规则，用户应尽快修改。
func (s *Service) RecoverPassword(ctx context.Context, email string) (string, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	temp, err := generateTempPassword()
	if err != nil {
		return "", fmt.Errorf("生成临时密码失败: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, u.Username, HashPassword(temp)); err != nil {
		return "", err
	}

	logger.Info().Str("username", u.Username).Msg("已为用户生成临时密码")
	return temp, nil
}

// generateTempPassword 32字节随机数的URL安全Base64编码
func generateTempPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
