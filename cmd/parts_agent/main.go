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

	"github.com/gin-gonic/gin"

	"FactorySense/internal/a2a"
	"FactorySense/internal/config"
	"FactorySense/internal/database/mongo"
	"FactorySense/internal/database/redis"
	"FactorySense/internal/discovery/etcd"
	"FactorySense/internal/llm"
	"FactorySense/internal/maintenance"
	fshttp "FactorySense/pkg/http"
	"FactorySense/pkg/logger"

	goredis "github.com/go-redis/redis/v8"
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
	appLogger := logger.New("parts_agent", "", "")
	appLogger.Info("Logger initialized for Parts Ordering Agent")

	ctx := context.Background()

	// 3. 初始化 MongoDB 与 Redis
	mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
	}
	defer mongo.Close(ctx)

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
	store := maintenance.NewMongoStore(mongoClient, cfg.Databases.MongoDB.Database, cache)

	// 4. 初始化 LLM 客户端，注入库存查询工具声明
	llmClient, err := llm.NewClient(cfg.LLM, maintenance.PartsTools())
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create LLM client: %v", err))
	}

	partsAgent := maintenance.NewPartsAgent(llmClient, store)

	// 5. 构建 A2A 服务：agent card + message/send
	card := a2a.AgentCard{
		Name:               maintenance.PartsAgentName,
		Description:        "Orders out-of-stock parts required by maintenance work orders.",
		URL:                cfg.Server.AdvertiseURL,
		Version:            "1.0.0",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{{
			ID:          "order_parts",
			Name:        "Order Parts",
			Description: "Checks stock for a work order's required parts and places a supplier order.",
			Tags:        []string{"parts", "procurement"},
		}},
	}
	a2aServer := a2a.NewServer(card, maintenance.NewA2AHandler(partsAgent))

	router := gin.New()
	router.Use(gin.Recovery())
	a2aServer.RegisterRoutes(router)

	// 6. 挂载到带中间件的 HTTP 服务器
	server, err := fshttp.NewServer(cfg.Middleware, fshttp.WithAddress(cfg.Server.Address))
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create http server: %v", err))
	}
	server.Handle("/", router)

	// 7. 注册到 etcd（可选）
	if cfg.Databases.Etcd.Enabled {
		sd, err := etcd.NewServiceDiscovery(cfg.Databases.Etcd.Endpoints)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create service discovery client: %v", err))
		}
		defer sd.Close()
		stop, err := sd.Register("parts_agent", cfg.Server.AdvertiseURL, 10)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to register service: %v", err))
		}
		defer close(stop)
		appLogger.Info("Registered parts_agent in etcd")
	}

	// 8. 启动并等待退出信号
	go func() {
		appLogger.Info("Starting parts agent on " + cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(fmt.Sprintf("HTTP server failed: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down parts agent")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("Server shutdown failed: %v", err))
	}
	appLogger.Info("Parts agent stopped")
}
