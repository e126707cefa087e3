package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"resume-match-go/internal/config"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/tracing"
)

var mysqlTracer = otel.Tracer("resume-match-go/storage/mysql")

// ErrUserNotFound 按用户名或邮箱都没有找到用户
var ErrUserNotFound = errors.New("user not found")

type gormSpanKey struct{}

// GormTracingPlugin GORM插件，为数据库操作打OpenTelemetry追踪点
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	registrations := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"CREATE", func(n string, f func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Create().After("gorm:create").Register(n, f) }},
		{"SELECT", func(n string, f func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Query().After("gorm:query").Register(n, f) }},
		{"UPDATE", func(n string, f func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Update().After("gorm:update").Register(n, f) }},
		{"DELETE", func(n string, f func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Register(n, f) }},
	}

	for _, r := range registrations {
		op := r.op
		if err := r.before("otel:before_"+op, p.before(op)); err != nil {
			return err
		}
		if err := r.after("otel:after_"+op, p.after()); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if stmt := db.Statement.SQL.String(); stmt != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(stmt)))
		}

		if db.Error != nil {
			// ErrRecordNotFound 属于正常业务分支，不算错误
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
				return
			}
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// MySQL 关系型存储：用户账户和运行归档
type MySQL struct {
	db *gorm.DB
}

// NewMySQL 创建MySQL连接并完成表结构迁移
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		orDefault(cfg.ConnectTimeoutSeconds, 10),
		orDefault(cfg.ReadTimeoutSeconds, 30),
		orDefault(cfg.WriteTimeoutSeconds, 30))

	logLevel := gormlogger.LogLevel(cfg.LogLevel)
	if logLevel < gormlogger.Silent || logLevel > gormlogger.Info {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	if err := db.Use(&GormTracingPlugin{tracer: mysqlTracer, dbName: cfg.Database}); err != nil {
		return nil, fmt.Errorf("注册GORM追踪插件失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层数据库连接失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 10))
	sqlDB.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 100))
	sqlDB.SetConnMaxLifetime(time.Duration(orDefault(cfg.ConnMaxLifetimeMinutes, 60)) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(orDefault(cfg.ConnMaxIdleTimeMinutes, 30)) * time.Minute)

	if err := db.AutoMigrate(&models.User{}, &models.RunArchive{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}

	return &MySQL{db: db}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// DB 暴露底层gorm连接
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser 创建用户记录
func (m *MySQL) CreateUser(ctx context.Context, user *models.User) error {
	if err := m.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("创建用户失败: %w", err)
	}
	return nil
}

// GetUserByUsername 按用户名查找用户
func (m *MySQL) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := m.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &user, nil
}

// GetUserByEmail 按邮箱查找用户
func (m *MySQL) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := m.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &user, nil
}

// UpdateUserPassword 更新用户的密码摘要
func (m *MySQL) UpdateUserPassword(ctx context.Context, username string, passwordDigest string) error {
	result := m.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("password_digest", passwordDigest)
	if result.Error != nil {
		return fmt.Errorf("更新密码失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SaveRunArchive 归档一次运行
func (m *MySQL) SaveRunArchive(ctx context.Context, archive *models.RunArchive) error {
	if err := m.db.WithContext(ctx).Create(archive).Error; err != nil {
		return fmt.Errorf("归档运行失败: %w", err)
	}
	return nil
}

// ListRunArchivesBySession 按会话列出运行归档，时间倒序
func (m *MySQL) ListRunArchivesBySession(ctx context.Context, sessionID string, limit int) ([]models.RunArchive, error) {
	if limit <= 0 {
		limit = 20
	}
	var archives []models.RunArchive
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&archives).Error
	if err != nil {
		return nil, fmt.Errorf("查询运行归档失败: %w", err)
	}
	return archives, nil
}
