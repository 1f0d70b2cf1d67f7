package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
// Enabled 为 false 时，工作流进度事件不会被发布。
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"` // 是否启用事件发布
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topic   string   `yaml:"topic"`   // 工作流进度事件主题
}

// EtcdConfig 定义了 Etcd 服务发现的连接配置。
type EtcdConfig struct {
	Enabled   bool     `yaml:"enabled"`   // 是否启用服务注册 / 发现
	Endpoints []string `yaml:"endpoints"` // Etcd 节点地址列表
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	MongoDB MongoConfig `yaml:"mongodb"` // MongoDB 数据库配置
	Redis   RedisConfig `yaml:"redis"`   // Redis 数据库配置
	Kafka   KafkaConfig `yaml:"kafka"`   // Kafka 消息队列配置
	Etcd    EtcdConfig  `yaml:"etcd"`    // Etcd 服务发现配置
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string       `yaml:"provider"` // LLM提供商 (例如: "openai", "gemini", "ollama")
	OpenAI   OpenAIConfig `yaml:"openai"`   // OpenAI 兼容端点配置
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 模型配置
	Ollama   OllamaConfig `yaml:"ollama"`   // Ollama 本地模型配置
}

// OpenAIConfig 包含了 OpenAI 兼容模型端点的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥
	Model   string `yaml:"model"`   // 模型部署名称
	BaseURL string `yaml:"baseURL"` // 可选。自定义端点地址
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// OllamaConfig 包含了 Ollama 本地模型的配置。
type OllamaConfig struct {
	Model   string `yaml:"model"`   // 模型名称
	BaseURL string `yaml:"baseURL"` // Ollama 服务地址
}

// AgentsConfig 描述了工作流链路中各个 Agent 的解析来源。
// 任何一项为空意味着对应的 Agent 会被跳过，而不是启动失败。
type AgentsConfig struct {
	// 托管 Agent 平台的项目端点，例如 "https://myproject.services.ai.example.com/api/projects/factory"。
	ProjectEndpoint string `yaml:"projectEndpoint"`
	// 托管的异常分类 Agent 名称。
	AnomalyAgentName string `yaml:"anomalyAgentName"`
	// 托管的故障诊断 Agent 名称。
	FaultAgentName string `yaml:"faultAgentName"`
	// 维修规划 Agent 的对等服务基准 URL（A2A 协议）。
	RepairPlannerURL string `yaml:"repairPlannerURL"`
	// 维护排程 Agent 的对等服务基准 URL。为空且本地模式未启用时跳过。
	SchedulerAgentURL string `yaml:"schedulerAgentURL"`
	// 零件订购 Agent 的对等服务基准 URL。
	PartsAgentURL string `yaml:"partsAgentURL"`
	// 为 true 时，维护排程与零件订购 Agent 在进程内运行（直连数据库），
	// 忽略对应的对等服务 URL。
	LocalAgents bool `yaml:"localAgents"`
}

// WorkflowConfig 定义了工作流运行器的行为。
type WorkflowConfig struct {
	// 单个步骤调用的超时时间，例如 "60s"。
	StepTimeout string `yaml:"stepTimeout"`
	// 为 true 时，某个步骤失败后停止链路；默认失败文本继续向后传递。
	HaltOnError bool `yaml:"haltOnError"`
}

// ServerConfig 定义了各服务的监听地址。
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址，例如 ":8080"
	// 对等 Agent 服务对外通告的自身 URL（写入 agent card 与 etcd 注册）。
	AdvertiseURL string `yaml:"advertiseURL"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "tokenBucket", "fixedWindow"
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置部分
	Agents     AgentsConfig     `yaml:"agents"`     // Agent 解析来源配置
	Workflow   WorkflowConfig   `yaml:"workflow"`   // 工作流运行器配置
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 文件内容中形如 ${VAR} 的占位符会先用环境变量展开，
// 这样部署面保持由环境驱动，而配置结构保持在一个文件里。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}

	expanded := os.ExpandEnv(string(yamlFile))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	return &cfg, nil
}
