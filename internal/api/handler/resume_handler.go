package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/storage"
)

// ResumeStore 简历对象存储，由MinIO实现
type ResumeStore interface {
	UploadResume(ctx context.Context, objectKey string, reader io.Reader, size int64) (string, error)
	DeleteResume(ctx context.Context, objectKey string) error
}

var _ ResumeStore = (*storage.MinIO)(nil)

// UploadResumeResponse 上传结果。ResumeRef可直接作为匹配请求的resume字段。
type UploadResumeResponse struct {
	ResumeRef string `json:"resume_ref"`
}

// ResumeHandler 简历文件的上传和删除
type ResumeHandler struct {
	store ResumeStore
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(store ResumeStore) *ResumeHandler {
	return &ResumeHandler{store: store}
}

// HandleUpload 存储简历文件并返回引用。对象键随机生成，保留原始扩展名
// 以便后续按类型提取文本。
func (h *ResumeHandler) HandleUpload(ctx context.Context, filename string, data []byte) (*UploadResumeResponse, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("简历文件内容为空")
	}

	ext := strings.ToLower(path.Ext(filename))
	objectKey := uuid.NewString() + ext

	ref, err := h.store.UploadResume(ctx, objectKey, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	logger.Info().Str("resume_ref", ref).Int("size", len(data)).Msg("简历上传完成")
	return &UploadResumeResponse{ResumeRef: ref}, nil
}

// HandleDelete 删除一个已上传的简历文件
func (h *ResumeHandler) HandleDelete(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return fmt.Errorf("对象键不能为空")
	}
	return h.store.DeleteResume(ctx, objectKey)
}
