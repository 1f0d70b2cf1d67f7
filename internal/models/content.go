package models

import (
	"encoding/json"
	"time"
)

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser      SpeakerRole = "user"      // 用户角色。
	SpeakerAssistant SpeakerRole = "assistant" // 助手角色。
	SpeakerTool      SpeakerRole = "tool"      // 工具角色。
	SpeakerModel     SpeakerRole = "model"     // 模型角色。
)

// Content 包含了构成单个消息轮次的多个部分。
type Content struct {
	// 可选。构成单个消息的部分列表。
	Parts []*Part `json:"parts,omitempty"`
	// 可选。内容的生产者，例如 'user'、'assistant'、'tool'。
	Role SpeakerRole `json:"role,omitempty"`
}

// Part 定义了消息的单个部分：文本、函数调用请求或函数调用结果。
type Part struct {
	// 可选。文本部分。
	Text string `json:"text,omitempty"`
	// 可选。模型返回的函数调用请求。
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
	// 可选。函数调用的结果输出，作为模型的上下文。
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall 包含了模型预测的函数调用信息。
type FunctionCall struct {
	// 可选。函数调用的唯一 ID。客户端执行 `function_call` 并返回具有匹配 `id` 的响应。
	ID string `json:"id,omitempty"`
	// 可选。JSON 对象格式的函数参数和值。
	Args map[string]any `json:"args,omitempty"`
	// 必填。要调用的函数名称。
	Name string `json:"name,omitempty"`
}

// ArgsToString 将函数参数序列化为 JSON 字符串，序列化失败时返回空字符串。
func (fc *FunctionCall) ArgsToString() string {
	if fc == nil || fc.Args == nil {
		return ""
	}
	data, err := json.Marshal(fc.Args)
	if err != nil {
		return ""
	}
	return string(data)
}

// FunctionResponse 包含了函数调用的结果输出。
type FunctionResponse struct {
	// 可选。此响应对应的函数调用 ID，与 FunctionCall.ID 匹配。
	ID string `json:"id,omitempty"`
	// 必填。被调用的函数名称。
	Name string `json:"name,omitempty"`
	// 必填。JSON 对象格式的函数响应。
	Response map[string]any `json:"response,omitempty"`
}

// ResponseToString 将函数响应序列化为 JSON 字符串，序列化失败时返回空字符串。
func (fr *FunctionResponse) ResponseToString() string {
	if fr == nil || fr.Response == nil {
		return ""
	}
	data, err := json.Marshal(fr.Response)
	if err != nil {
		return ""
	}
	return string(data)
}

// HasFunctionCall 判断该轮内容中是否包含函数调用请求。
func (c Content) HasFunctionCall() bool {
	for _, p := range c.Parts {
		if p != nil && p.FunctionCall != nil {
			return true
		}
	}
	return false
}

// JoinedText 返回该轮内容中所有文本部分的拼接结果。
func (c Content) JoinedText() string {
	var out string
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			out += p.Text
		}
	}
	return out
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content []Content `json:"content,omitempty"` // 请求的内容列表。
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`      // 响应的内容列表。
	CreateTime   time.Time `json:"createTime,omitempty"`   // 响应创建时间。
	ResponseID   string    `json:"responseId,omitempty"`   // 响应ID。
	ModelVersion string    `json:"modelVersion,omitempty"` // 模型版本。
}
