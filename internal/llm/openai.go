package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"FactorySense/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI 兼容 API 的 LLM 客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
	tools  []openai.Tool  // 为该客户端配置的工具列表
}

// NewOpenAI 创建一个新的 OpenAI 客户端。
// baseURL 非空时指向兼容端点（例如 Azure 部署或本地网关）。
func NewOpenAI(model, apiKey, baseURL string, tools []openai.Tool) (*OpenAI, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAI{
		client: client,
		model:  model,
		tools:  tools,
	}, nil
}

// GenerateContent 使用 OpenAI API 生成内容。
func (o *OpenAI) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	openaiReq := o.toOpenAIRequest(req)

	// 如果配置了工具，则添加到请求中
	if len(o.tools) > 0 {
		openaiReq.Tools = o.tools
	}

	resp, err := o.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	return o.toGenerateContentResponse(&resp), nil
}

// GenerateContentStream 使用 OpenAI API 以流式方式生成内容。
func (o *OpenAI) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	openaiReq := o.toOpenAIRequest(req)

	if len(o.tools) > 0 {
		openaiReq.Tools = o.tools
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	respChan := make(chan *models.GenerateContentResponse)

	go func() {
		defer close(respChan)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err != nil {
				return
			}
			respChan <- o.toGenerateContentResponseStream(&resp)
		}
	}()

	return respChan, nil
}

// toOpenAIRequest 将我们的内部请求格式转换为 OpenAI 格式。
// 函数调用轮次会被转换为 assistant 消息上的 tool_calls，
// 函数结果轮次会被转换为携带 tool_call_id 的 tool 消息。
func (o *OpenAI) toOpenAIRequest(req *models.GenerateContentRequest) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	for _, content := range req.Content {
		msg := openai.ChatCompletionMessage{Role: toOpenAIRole(content.Role)}
		hasPayload := false

		for _, part := range content.Parts {
			switch {
			case part.FunctionCall != nil:
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   part.FunctionCall.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: part.FunctionCall.ArgsToString(),
					},
				})
				hasPayload = true
			case part.FunctionResponse != nil:
				// API 要求每个 tool_call_id 对应一条独立的 tool 消息，
				// 所以一个轮次里的多个函数结果各自展开成一条消息。
				messages = append(messages, openai.ChatCompletionMessage{
					Role:       string(openai.ChatMessageRoleTool),
					ToolCallID: part.FunctionResponse.ID,
					Content:    part.FunctionResponse.ResponseToString(),
				})
			case part.Text != "":
				msg.Content += part.Text
				hasPayload = true
			}
		}

		if hasPayload {
			messages = append(messages, msg)
		}
	}

	return openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
}

// toOpenAIRole 将内部角色映射到 OpenAI 的消息角色。
func toOpenAIRole(role models.SpeakerRole) string {
	switch role {
	case models.SpeakerModel, models.SpeakerAssistant:
		return openai.ChatMessageRoleAssistant
	case models.SpeakerTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}

// toGenerateContentResponse 将 OpenAI 响应转换为我们的内部格式。
func (o *OpenAI) toGenerateContentResponse(resp *openai.ChatCompletionResponse) *models.GenerateContentResponse {
	var content []models.Content
	for _, choice := range resp.Choices {
		var parts []*models.Part
		if choice.Message.Content != "" {
			parts = append(parts, &models.Part{Text: choice.Message.Content})
		}
		for _, tc := range choice.Message.ToolCalls {
			parts = append(parts, &models.Part{
				FunctionCall: &models.FunctionCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: parseFunctionArgs(tc.Function.Arguments),
				},
			})
		}
		content = append(content, models.Content{
			Parts: parts,
			Role:  models.SpeakerModel,
		})
	}

	return &models.GenerateContentResponse{
		Content:      content,
		ResponseID:   resp.ID,
		ModelVersion: resp.Model,
	}
}

// parseFunctionArgs 将模型返回的 JSON 参数字符串解析为 map。
// 模型偶尔会返回不合法的 JSON，这时把原始字符串保留下来。
func parseFunctionArgs(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}

// toGenerateContentResponseStream 将 OpenAI 流式响应转换为我们的内部格式。
func (o *OpenAI) toGenerateContentResponseStream(resp *openai.ChatCompletionStreamResponse) *models.GenerateContentResponse {
	var content []models.Content
	for _, choice := range resp.Choices {
		content = append(content, models.Content{
			Parts: []*models.Part{
				{Text: choice.Delta.Content},
			},
			Role: models.SpeakerModel,
		})
	}

	return &models.GenerateContentResponse{
		Content:      content,
		ResponseID:   resp.ID,
		ModelVersion: resp.Model,
	}
}
