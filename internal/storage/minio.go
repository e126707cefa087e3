package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
)

// MinIO 对象存储：简历原始文件
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO 创建MinIO客户端并确保简历存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.ResumeBucket
	if bucket == "" {
		bucket = "resumes"
	}

	m := &MinIO{client: client, bucket: bucket}
	if err := m.ensureBucketExists(context.Background(), cfg.Location); err != nil {
		return nil, fmt.Errorf("确保简历存储桶 %s 存在失败: %w", bucket, err)
	}
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
			return err
		}
		logger.Info().Str("bucket", m.bucket).Msg("已创建简历存储桶")
	}
	return nil
}

// UploadResume 上传简历文件，返回对象键
func (m *MinIO) UploadResume(ctx context.Context, objectKey string, reader io.Reader, size int64) (string, error) {
	contentType := resumeContentType(objectKey)
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传简历 %s 失败: %w", objectKey, err)
	}
	logger.Debug().Str("object", objectKey).Int64("size", size).Msg("简历已上传")
	return objectKey, nil
}

// Fetch 按对象键取回简历内容。实现能力层的 ResumeFetcher 接口。
func (m *MinIO) Fetch(ctx context.Context, ref string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取简历 %s 失败: %w", ref, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取简历 %s 失败: %w", ref, err)
	}
	return data, nil
}

// DeleteResume 删除简历文件
func (m *MinIO) DeleteResume(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除简历 %s 失败: %w", objectKey, err)
	}
	return nil
}

func resumeContentType(objectKey string) string {
	switch strings.ToLower(path.Ext(objectKey)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
