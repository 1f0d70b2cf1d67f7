package models

import "time"

// RequestInfo 存储了关于 HTTP 请求的上下文信息。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
}

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 错误的类型，例如 "resolution_error", "invocation_error"
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
}

// StepLogStatus 定义了工作流步骤进度日志的状态枚举。
type StepLogStatus string

const (
	StatusRunStarted    StepLogStatus = "RUN_STARTED"
	StatusStepFinished  StepLogStatus = "STEP_FINISHED"
	StatusStepFailed    StepLogStatus = "STEP_FAILED"
	StatusRunFinished   StepLogStatus = "RUN_FINISHED"
)

// StepLogEntry 定义了发送到 Kafka 的工作流进度日志的统一结构。
type StepLogEntry struct {
	RunID     string        `json:"run_id"`
	MachineID string        `json:"machine_id,omitempty"`
	AgentName string        `json:"agent_name,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Status    StepLogStatus `json:"status"`
	Message   string        `json:"message"`
	Content   interface{}   `json:"content,omitempty"`
}
