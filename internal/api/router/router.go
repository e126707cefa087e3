// Package router 注册HTTP路由和入口中间件
package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/hertz-contrib/keyauth"

	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/user"
)

// RegisterRoutes 注册API路由。userHandler和resumeHandler都允许为nil，
// 为nil时对应的接口不暴露。
func RegisterRoutes(h *server.Hertz, apiSecret string, chatHandler *handler.ChatHandler, userHandler *handler.UserHandler, resumeHandler *handler.ResumeHandler) {
	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	chat := api.Group("/")
	if apiSecret != "" {
		chat.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:X-API-Secret", ""),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(apiSecret)) == 1, nil
			}),
			keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
				ctx.JSON(consts.StatusUnauthorized, utils.H{"error": "invalid or missing API secret"})
				ctx.Abort()
			}),
		))
	}

	chat.POST("/chat", func(c context.Context, ctx *app.RequestContext) {
		var req handler.ChatRequest
		if err := ctx.BindJSON(&req); err != nil || strings.TrimSpace(req.Resume) == "" {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "resume is required"})
			return
		}

		sessionID := string(ctx.GetHeader("X-Session-ID"))
		if sessionID == "" {
			sessionID = ctx.ClientIP()
		}

		resp, err := chatHandler.HandleChat(c, sessionID, &req)
		if err != nil {
			if errors.Is(err, handler.ErrRateLimited) {
				ctx.JSON(consts.StatusTooManyRequests, utils.H{"error": "too many requests, slow down"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "the job matching could not be completed"})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	chat.GET("/runs", func(c context.Context, ctx *app.RequestContext) {
		sessionID := string(ctx.GetHeader("X-Session-ID"))
		if sessionID == "" {
			sessionID = ctx.ClientIP()
		}
		limit, _ := strconv.Atoi(ctx.Query("limit"))

		runs, err := chatHandler.HandleListRuns(c, sessionID, limit)
		if err != nil {
			if errors.Is(err, handler.ErrArchiveUnavailable) {
				ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "run history is not available"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "could not list previous runs"})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"runs": runs})
	})

	if resumeHandler != nil {
		registerResumeRoutes(chat, resumeHandler)
	}

	if userHandler != nil {
		registerUserRoutes(api, userHandler)
	}
}

// registerResumeRoutes 简历文件接口，与/chat同样受共享密钥保护
func registerResumeRoutes(chat *route.RouterGroup, resumeHandler *handler.ResumeHandler) {
	chat.POST("/resumes", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "multipart field 'file' is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "could not read the uploaded file"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "could not read the uploaded file"})
			return
		}

		resp, err := resumeHandler.HandleUpload(c, fileHeader.Filename, data)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "the resume could not be stored"})
			return
		}
		ctx.JSON(consts.StatusCreated, resp)
	})

	chat.DELETE("/resumes/:key", func(c context.Context, ctx *app.RequestContext) {
		if err := resumeHandler.HandleDelete(c, ctx.Param("key")); err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "the resume could not be deleted"})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}

func registerUserRoutes(api *route.RouterGroup, userHandler *handler.UserHandler) {
	users := api.Group("/users")

	users.POST("/register", func(c context.Context, ctx *app.RequestContext) {
		var req handler.RegisterRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
			return
		}
		resp, err := userHandler.HandleRegister(c, &req)
		if err != nil {
			ctx.JSON(userErrorStatus(err), utils.H{"error": userErrorMessage(err)})
			return
		}
		ctx.JSON(consts.StatusCreated, resp)
	})

	users.POST("/login", func(c context.Context, ctx *app.RequestContext) {
		var req handler.LoginRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
			return
		}
		if err := userHandler.HandleLogin(c, &req); err != nil {
			ctx.JSON(userErrorStatus(err), utils.H{"error": userErrorMessage(err)})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	users.POST("/change-password", func(c context.Context, ctx *app.RequestContext) {
		var req handler.ChangePasswordRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
			return
		}
		if err := userHandler.HandleChangePassword(c, &req); err != nil {
			ctx.JSON(userErrorStatus(err), utils.H{"error": userErrorMessage(err)})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	users.POST("/recover-password", func(c context.Context, ctx *app.RequestContext) {
		var req handler.RecoverPasswordRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
			return
		}
		resp, err := userHandler.HandleRecoverPassword(c, &req)
		if err != nil {
			ctx.JSON(userErrorStatus(err), utils.H{"error": userErrorMessage(err)})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})
}

// userErrorStatus 把账户服务的错误映射为HTTP状态码
func userErrorStatus(err error) int {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		return consts.StatusUnauthorized
	case errors.Is(err, user.ErrUsernameTaken), errors.Is(err, user.ErrEmailTaken):
		return consts.StatusConflict
	case errors.Is(err, user.ErrWeakPassword), errors.Is(err, user.ErrPasswordUnchanged):
		return consts.StatusBadRequest
	case errors.Is(err, storage.ErrUserNotFound):
		return consts.StatusNotFound
	default:
		return consts.StatusBadRequest
	}
}

// userErrorMessage 面向调用方的错误文案，不泄漏内部细节
func userErrorMessage(err error) string {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, user.ErrUsernameTaken):
		return "username already taken"
	case errors.Is(err, user.ErrEmailTaken):
		return "email already taken"
	case errors.Is(err, user.ErrWeakPassword):
		return "password does not meet the requirements"
	case errors.Is(err, user.ErrPasswordUnchanged):
		return "new password must differ from the old one"
	case errors.Is(err, storage.ErrUserNotFound):
		return "user not found"
	default:
		return "invalid request"
	}
}
