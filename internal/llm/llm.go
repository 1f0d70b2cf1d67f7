package llm

import (
	"context"
	"fmt"

	"FactorySense/internal/config"
	"FactorySense/internal/models"

	"github.com/mark3labs/mcp-go/mcp"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
// 它接收一个工具声明列表，并将其转换为对应提供商的格式注入到客户端中，
// 使模型能够感知并调用这些工具。
func NewClient(cfg config.LLMConfig, tools []*mcp.Tool) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		openaiTools, err := ConvertMCPToolsToOpenAI(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tools for openai provider: %w", err)
		}
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, openaiTools)
	case "gemini":
		declarations, err := ConvertMCPToolsToGemini(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tools for gemini provider: %w", err)
		}
		return NewGemini(context.Background(), cfg.Gemini.Model, cfg.Gemini.APIKey, declarations)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
