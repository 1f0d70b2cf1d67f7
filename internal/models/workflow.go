package models

// MaxToolResultLength 是记录在步骤结果中的工具调用结果的最大长度。
// 超过该长度的结果会被截断，以限制响应体的大小。
const MaxToolResultLength = 500

// ToolCallInfo 记录了一次 Agent 对外部能力的调用。
type ToolCallInfo struct {
	// 被调用的能力名称。
	ToolName string `json:"toolName"`
	// 关联 ID，用于将调用与其结果配对。后端未提供时为空。
	CallID string `json:"callId,omitempty"`
	// 序列化后的调用参数。
	Arguments string `json:"arguments,omitempty"`
	// 序列化后的调用结果，最长 MaxToolResultLength 个字符。
	// 在匹配的结果到达之前为 nil。
	Result *string `json:"result"`
}

// AgentStepResult 是一次工作流运行中单个 Agent 的执行记录。
// 在步骤执行结束时一次性追加到运行的有序日志中，此后不再修改。
type AgentStepResult struct {
	// 产生该步骤的 Agent 名称。
	AgentName string `json:"agentName"`
	// 按调用发起顺序排列的工具调用记录。
	ToolCalls []ToolCallInfo `json:"toolCalls"`
	// Agent 输出的全部文本内容的拼接。
	TextOutput string `json:"textOutput"`
	// 转发给下一个步骤的消息。失败时为合成的错误文本。
	FinalMessage string `json:"finalMessage"`
}

// WorkflowResponse 是一次完整管线运行的对外可见结果。
type WorkflowResponse struct {
	// 本次运行中每个已配置 Agent 的步骤记录，按链路顺序排列。
	AgentSteps []AgentStepResult `json:"agentSteps"`
	// 最后一个步骤的输出；管线未产生可用输出时为 null。
	FinalMessage *string `json:"finalMessage"`
}

// TruncateToolResult 将序列化后的工具结果截断到 MaxToolResultLength 个字符。
// 按符文计数截断，保证多字节结果不会被从字符中间切开。
func TruncateToolResult(s string) string {
	if len(s) <= MaxToolResultLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= MaxToolResultLength {
		return s
	}
	return string(runes[:MaxToolResultLength])
}
