package handler

import (
	"context"

	"resume-match-go/internal/user"
)

// UserHandler 用户账户接口的处理器，薄封装在用户服务之上
type UserHandler struct {
	service *user.Service
}

// NewUserHandler 创建用户处理器
func NewUserHandler(service *user.Service) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// HandleRegister 注册新用户
func (h *UserHandler) HandleRegister(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	u, err := h.service.Register(ctx, user.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResponse{Username: u.Username, Email: u.Email}, nil
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin 校验登录凭证
func (h *UserHandler) HandleLogin(ctx context.Context, req *LoginRequest) error {
	_, err := h.service.Authenticate(ctx, req.Username, req.Password)
	return err
}

// ChangePasswordRequest 改密请求
type ChangePasswordRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// HandleChangePassword 修改密码
func (h *UserHandler) HandleChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	return h.service.ChangePassword(ctx, req.Username, req.OldPassword, req.NewPassword)
}

// RecoverPasswordRequest 找回密码请求
type RecoverPasswordRequest struct {
	Email string `json:"email"`
}

// RecoverPasswordResponse 找回密码响应，携带立即生效的临时密码
type RecoverPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// HandleRecoverPassword 按邮箱生成临时密码
func (h *UserHandler) HandleRecoverPassword(ctx context.Context, req *RecoverPasswordRequest) (*RecoverPasswordResponse, error) {
	temp, err := h.service.RecoverPassword(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	return &RecoverPasswordResponse{TempPassword: temp}, nil
}
