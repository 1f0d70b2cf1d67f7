package llm

import (
	"context"
	"errors"
	"fmt"

	"FactorySense/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
// 每次调用都携带完整的对话内容，客户端本身不保存会话状态。
type Gemini struct {
	model *genai.GenerativeModel // Gemini 生成模型实例。
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 要使用的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
//	tools: 注入给模型的函数声明列表，可以为空。
func NewGemini(ctx context.Context, model, apiKey string, tools []*genai.FunctionDeclaration) (*Gemini, error) {
	// 使用 API 密钥创建 GenAI 客户端。
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	// 获取生成模型
	generativeModel := client.GenerativeModel(model)

	// 如果提供了工具，则进行配置
	if len(tools) > 0 {
		geminiTool := &genai.Tool{
			FunctionDeclarations: tools,
		}
		generativeModel.Tools = []*genai.Tool{geminiTool}
	}

	return &Gemini{model: generativeModel}, nil
}

// GenerateContent 向 Gemini API 发送请求并返回响应。
// 请求中除最后一轮外的内容作为会话历史，最后一轮作为新消息发送。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	session, parts, err := g.newSession(req)
	if err != nil {
		return nil, err
	}

	resp, err := session.SendMessage(ctx, parts...)
	if err != nil {
		return nil, err
	}

	return fromGenaiResponse(resp), nil
}

// GenerateContentStream 向 Gemini API 发送请求并返回响应通道。
func (g *Gemini) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	session, parts, err := g.newSession(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan *models.GenerateContentResponse)
	iter := session.SendMessageStream(ctx, parts...)

	// 启动一个 goroutine 来处理流式响应。
	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				return
			}
			ch <- fromGenaiResponse(resp)
		}
	}()

	return ch, nil
}

// newSession 为一次请求构造聊天会话：除最后一轮外的内容装入历史，
// 返回待发送的最后一轮的 Part 切片。
func (g *Gemini) newSession(req *models.GenerateContentRequest) (*genai.ChatSession, []genai.Part, error) {
	if len(req.Content) == 0 {
		return nil, nil, fmt.Errorf("empty content in request")
	}

	session := g.model.StartChat()
	for _, c := range req.Content[:len(req.Content)-1] {
		session.History = append(session.History, toGenaiContent(c))
	}

	last := req.Content[len(req.Content)-1]
	parts := toGenaiParts(last)
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("last content turn has no sendable parts")
	}
	return session, parts, nil
}

// toGenaiContent 将内部 Content 结构体转换为 GenAI Content。
func toGenaiContent(c models.Content) *genai.Content {
	role := "user"
	if c.Role == models.SpeakerModel || c.Role == models.SpeakerAssistant {
		role = "model"
	}
	return &genai.Content{
		Parts: toGenaiParts(c),
		Role:  role,
	}
}

// toGenaiParts 将内部 Content 中的部分转换为 GenAI Part 切片。
func toGenaiParts(c models.Content) []genai.Part {
	var parts []genai.Part
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.Text != "":
			parts = append(parts, genai.Text(p.Text))
		case p.FunctionCall != nil:
			parts = append(parts, genai.FunctionCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
		case p.FunctionResponse != nil:
			parts = append(parts, genai.FunctionResponse{
				Name:     p.FunctionResponse.Name,
				Response: p.FunctionResponse.Response,
			})
		}
	}
	return parts
}

// fromGenaiResponse 将 GenAI GenerateContentResponse 转换为内部结构体。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	if resp == nil {
		return nil
	}
	var content []models.Content
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			content = append(content, fromGenaiContent(cand.Content))
		}
	}
	return &models.GenerateContentResponse{
		Content: content,
	}
}

// fromGenaiContent 将 GenAI Content 结构体转换为内部 Content 结构体。
func fromGenaiContent(content *genai.Content) models.Content {
	var parts []*models.Part
	for _, p := range content.Parts {
		parts = append(parts, fromGenaiPart(p))
	}
	role := models.SpeakerModel
	if content.Role == "user" {
		role = models.SpeakerUser
	}
	return models.Content{
		Parts: parts,
		Role:  role,
	}
}

// fromGenaiPart 将 GenAI Part 接口转换为内部 Part 结构体。
// Gemini 的函数调用没有调用 ID，调用方按函数名匹配结果。
func fromGenaiPart(part genai.Part) *models.Part {
	switch v := part.(type) {
	case genai.Text:
		return &models.Part{Text: string(v)}
	case genai.FunctionCall:
		return &models.Part{
			FunctionCall: &models.FunctionCall{
				Name: v.Name,
				Args: v.Args,
			},
		}
	case genai.FunctionResponse:
		return &models.Part{
			FunctionResponse: &models.FunctionResponse{
				Name:     v.Name,
				Response: v.Response,
			},
		}
	default:
		return &models.Part{Text: fmt.Sprintf("%v", v)}
	}
}
