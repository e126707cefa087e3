// Package storage 聚合所有存储依赖：对象存储、关系库、键值库和消息队列。
package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
)

// Storage 存储管理器。组件按配置逐个初始化，单个组件失败不阻断整体，
// 只有全部失败才返回错误。调用方需自行检查所依赖的组件是否为nil。
type Storage struct {
	// 对象存储，简历原始文件
	MinIO *MinIO

	// 关系库，用户账户和运行归档
	MySQL *MySQL

	// 键值库，会话历史和入口限流
	Redis *Redis

	// 消息队列，匹配完成事件
	RabbitMQ *RabbitMQ
}

// NewStorage 创建存储管理器
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.MySQL.Host != "" {
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if storage.MinIO == nil && storage.MySQL == nil && storage.Redis == nil && storage.RabbitMQ == nil {
		if len(initErrors) > 0 {
			return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
		}
		logger.Warn().Msg("未配置任何存储组件")
	}

	if len(initErrors) > 0 {
		logger.Warn().Strs("failures", initErrors).Msg("部分存储组件初始化失败")
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
	// MinIO客户端无需显式关闭
}
