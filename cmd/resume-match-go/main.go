package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"resume-match-go/internal/agent"
	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/api/router"
	"resume-match-go/internal/capability"
	"resume-match-go/internal/config"
	applogger "resume-match-go/internal/logger"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/search"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/user"
	"resume-match-go/pkg/ratelimit"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-match-go" //nolint:gochecknoglobals
)

func main() {
	// .env 仅本地开发使用，不存在时静默跳过
	_ = godotenv.Load()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Infof("配置加载成功, 版本: %s", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, serviceName, cfg.Server.OTLPEndpoint)
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭链路追踪失败: %v", err)
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 规划走默认模型，画像提取和匹配评估可按任务配置更小的模型
	plannerModel := buildChatModel(cfg, cfg.LLM.Model)
	extractorModel := buildChatModel(cfg, cfg.GetModelForTask("profile_extraction"))
	evaluatorModel := buildChatModel(cfg, cfg.GetModelForTask("match_evaluation"))

	registry, err := buildRegistry(ctx, cfg, storageManager, extractorModel, evaluatorModel)
	if err != nil {
		glog.Fatalf("初始化能力注册表失败: %v", err)
	}
	glog.Info("能力注册表初始化成功")

	sessions := buildSessionStore(storageManager)
	planner := agent.NewLLMPlanner(plannerModel)
	orchestrator := agent.NewOrchestrator(registry, planner, sessions,
		agent.WithMaxSteps(cfg.Orchestrator.MaxSteps),
		agent.WithEvalWorkers(cfg.Orchestrator.EvalWorkers),
		agent.WithInvokeTimeout(config.GetDuration(cfg.Orchestrator.InvokeTimeout, 60*time.Second)),
		agent.WithPlanTimeout(config.GetDuration(cfg.Orchestrator.PlanTimeout, 90*time.Second)),
	)
	glog.Info("编排器初始化成功")

	var limiter handler.RateLimiter
	if storageManager.Redis != nil {
		limiter = storageManager.Redis
	} else {
		glog.Warn("Redis不可用, 入口限流已关闭")
	}

	var archiver handler.RunArchiver
	var userHandler *handler.UserHandler
	if storageManager.MySQL != nil {
		archiver = storageManager.MySQL
		userService, err := user.NewService(storageManager.MySQL)
		if err != nil {
			glog.Fatalf("初始化用户服务失败: %v", err)
		}
		userHandler = handler.NewUserHandler(userService)
	} else {
		glog.Warn("MySQL不可用, 运行归档与账户接口已关闭")
	}

	var publisher storage.EventPublisher
	if storageManager.RabbitMQ != nil {
		publisher = storageManager.RabbitMQ
	}

	var resumeHandler *handler.ResumeHandler
	if storageManager.MinIO != nil {
		resumeHandler = handler.NewResumeHandler(storageManager.MinIO)
	}

	chatHandler := handler.NewChatHandler(cfg, orchestrator, limiter, archiver, publisher)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg.Server.APISecret, chatHandler, userHandler, resumeHandler)
	glog.Info("HTTP路由注册成功")

	go func() {
		glog.Infof("HTTP服务器启动中, 监听地址: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号, 正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// buildChatModel 创建指定模型的LLM客户端并套上该模型的QPM限流代理
func buildChatModel(cfg *config.Config, modelName string) model.ToolCallingChatModel {
	opts := []agent.GroqOption{}
	if cfg.LLM.Temperature > 0 {
		opts = append(opts, agent.WithTemperature(cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens > 0 {
		opts = append(opts, agent.WithMaxTokens(cfg.LLM.MaxTokens))
	}

	chatModel, err := agent.NewGroqChatModel(cfg.LLM.APIKey, modelName, cfg.LLM.APIURL, opts...)
	if err != nil {
		glog.Fatalf("初始化LLM客户端失败: %v", err)
	}

	return ratelimit.WrapWithQPMLimit(chatModel, modelName, cfg.ModelQPMLimits, 30)
}

// buildRegistry 组装能力注册表。配置了远端目录时能力来自能力服务器，
// 否则注册三个进程内的内置能力。
func buildRegistry(ctx context.Context, cfg *config.Config, storageManager *storage.Storage, extractorModel, evaluatorModel model.ToolCallingChatModel) (*capability.Registry, error) {
	if cfg.Capability.RemoteURL != "" {
		remote := capability.NewRemoteSource(cfg.Capability.RemoteURL, nil)
		registry := capability.NewRegistry(remote)
		go remote.WatchChanges(ctx, registry, time.Duration(cfg.Capability.WatchRetrySeconds)*time.Second)
		glog.Infof("使用远端能力目录: %s", cfg.Capability.RemoteURL)
		return registry, nil
	}

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		return nil, err
	}

	// MinIO可用时简历引用指向对象存储，否则回退到本地文件
	var fetcher capability.ResumeFetcher = capability.LocalResumeFetcher{}
	if storageManager.MinIO != nil {
		fetcher = storageManager.MinIO
	} else {
		glog.Warn("MinIO不可用, 简历引用将按本地路径读取")
	}

	searchClient := search.NewClient(search.Config{
		APIKey:      cfg.Search.APIKey,
		BaseURL:     cfg.Search.BaseURL,
		TopN:        cfg.Search.TopN,
		RecencyDays: cfg.Search.RecencyDays,
		Regions:     cfg.Search.Regions,
		Timeout:     config.GetDuration(cfg.Search.Timeout, 30*time.Second),
	}, nil)

	source := capability.NewLocalSource(
		capability.NewResumeParserEntry(fetcher, pdfExtractor, parser.NewLLMProfileExtractor(extractorModel)),
		capability.NewJobSearcherEntry(searchClient),
		capability.NewEvaluateMatchEntry(parser.NewLLMMatchEvaluator(evaluatorModel)),
	)
	return capability.NewRegistry(source), nil
}

// buildSessionStore Redis可用时会话历史落Redis，否则退化为进程内存储
func buildSessionStore(storageManager *storage.Storage) agent.SessionStore {
	if storageManager.Redis != nil {
		store, err := agent.NewRedisSessionStore(storageManager.Redis.Client, "session:", storageManager.Redis.SessionTTL())
		if err == nil {
			return store
		}
		glog.Warnf("初始化Redis会话存储失败, 回退到内存存储: %v", err)
	}
	return agent.NewInMemorySessionStore()
}

func initLogger(cfg *config.Config) {
	applogger.Init(applogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	glog.SetLogger(hertzadapter.From(applogger.Logger))
	if cfg.Logger.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	}
}
