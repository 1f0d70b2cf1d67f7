package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FactorySense/internal/config"
	"FactorySense/internal/database/kafka"
	"FactorySense/internal/database/mongo"
	"FactorySense/internal/database/redis"
	"FactorySense/internal/discovery/etcd"
	"FactorySense/internal/llm"
	"FactorySense/internal/maintenance"
	"FactorySense/internal/workflow_service/api"
	"FactorySense/internal/workflow_service/service"
	fshttp "FactorySense/pkg/http"
	"FactorySense/pkg/logger"

	goredis "github.com/go-redis/redis/v8"
	"github.com/mark3labs/mcp-go/mcp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 2. 初始化 Logger
	logger.InitFromLevelName(cfg.Logger.Level)
	appLogger := logger.New("workflow_service", "", "")
	appLogger.Info("Logger initialized for Workflow Service")

	ctx := context.Background()
	deps := service.Deps{}

	// 3. 初始化 Kafka 步骤事件发布器（可选）
	if cfg.Databases.Kafka.Enabled {
		kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create kafka client: %v", err))
		}
		publisher := kafka.NewStepPublisher(kafkaClient)
		defer func() {
			if err := publisher.Close(); err != nil {
				appLogger.Error(fmt.Sprintf("Failed to close step publisher cleanly: %v", err))
			}
		}()
		deps.Publisher = publisher
		appLogger.Info("Kafka step publisher initialized")
	}

	// 4. 初始化 Redis（天气缓存与本地 Agent 的对话历史缓存共用）
	var cache *goredis.Client
	if cfg.Databases.Redis.Address != "" {
		cache, err = redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			appLogger.Error(fmt.Sprintf("Redis unavailable, continuing without cache: %v", err))
			cache = nil
		} else {
			defer redis.Close()
		}
	}

	// 5. 本地模式下初始化 MongoDB 存储与 LLM 客户端
	if cfg.Agents.LocalAgents {
		mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		}
		defer mongo.Close(ctx)
		deps.Store = maintenance.NewMongoStore(mongoClient, cfg.Databases.MongoDB.Database, cache)

		var tools []*mcp.Tool
		tools = append(tools, maintenance.SchedulerTools()...)
		tools = append(tools, maintenance.PartsTools()...)
		llmClient, err := llm.NewClient(cfg.LLM, tools)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create LLM client: %v", err))
		}
		deps.LLM = llmClient
		appLogger.Info("Local maintenance agents enabled")
	}

	// 6. 初始化 etcd 服务发现（可选，用作对等 Agent 地址的回退来源）
	var sd *etcd.ServiceDiscovery
	if cfg.Databases.Etcd.Enabled {
		sd, err = etcd.NewServiceDiscovery(cfg.Databases.Etcd.Endpoints)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create service discovery client: %v", err))
		}
		defer sd.Close()
		deps.Resolver = sd
	}

	// 7. 构建下游 HTTP 客户端并解析 Agent 链路
	client, err := fshttp.NewClient(cfg.Middleware.CircuitBreaker)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create http client: %v", err))
	}
	deps.Client = client

	svc := service.New(ctx, cfg, deps)
	appLogger.WithPayload(map[string]any{"agents": svc.AgentNames()}).Info("Agent chain resolved")

	// 8. 构建路由并挂载到带限流 / 熔断中间件的服务器上
	router := api.NewRouter(api.NewHandler(svc, cache))
	server, err := fshttp.NewServer(cfg.Middleware, fshttp.WithAddress(cfg.Server.Address))
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create http server: %v", err))
	}
	server.Handle("/", router)

	// 9. 注册自身到 etcd（可选）
	if sd != nil {
		stop, err := sd.Register("workflow_service", cfg.Server.AdvertiseURL, 10)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to register service: %v", err))
		}
		defer close(stop)
		appLogger.Info("Registered workflow_service in etcd")
	}

	// 10. 启动服务器并等待退出信号
	go func() {
		appLogger.Info("Starting workflow service on " + cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(fmt.Sprintf("HTTP server failed: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down workflow service")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("Server shutdown failed: %v", err))
	}
	appLogger.Info("Workflow service stopped")
}
