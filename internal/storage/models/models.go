// Package models 定义关系型存储的数据模型
package models

import (
	"time"

	"gorm.io/datatypes"
)

// User 用户账户表。密码只存SHA-256十六进制摘要，不存明文。
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Username  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_users_username_unique"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email_unique"`
	// PasswordDigest SHA-256十六进制摘要，固定64字符
	PasswordDigest string    `gorm:"type:char(64);not null"`
	CreatedAt      time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// RunArchive 单次匹配运行的归档：最终回复和完整的能力调用过程。
// 过程文本可回放，用于排障和审计。
type RunArchive struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"type:char(36);not null;uniqueIndex:idx_run_archives_run_id_unique"`
	SessionID string `gorm:"type:varchar(128);not null;index:idx_run_archives_session_id"`
	// ResumeRef 调用方传入的简历引用
	ResumeRef string `gorm:"type:varchar(1024)"`
	// Response 最终回复文本
	Response string `gorm:"type:text"`
	// Process 渲染后的能力调用过程
	Process string `gorm:"type:mediumtext"`
	// TraceJSON 结构化的调用记录，保留原始时序
	TraceJSON datatypes.JSON `gorm:"type:json"`
	// MatchCount 本次运行产出的匹配结果数
	MatchCount int `gorm:"type:int;default:0"`
	// Degraded 运行是否以降级回复结束
	Degraded  bool      `gorm:"type:tinyint(1);default:0;index:idx_run_archives_degraded"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_run_archives_created_at"`
}

func (RunArchive) TableName() string {
	return "run_archives"
}
