package agent

import (
	"context"

	"FactorySense/internal/models"
)

// Agent 定义了工作流中每个执行单元必须实现的接口。
// 一个 Agent 可以托管在外部平台、通过 A2A 协议部署为对等服务，
// 或者直接在进程内运行。
type Agent interface {
	// Name 返回 Agent 的名称，用于结果归属和日志。
	Name() string
	// Invoke 以一段对话内容作为输入执行 Agent，返回其产生的全部轮次。
	Invoke(ctx context.Context, conversation []models.Content) (*InvokeResult, error)
}

// InvokeResult 是一次 Agent 调用产生的全部输出。
type InvokeResult struct {
	// Turns 按产生顺序排列：文本轮次、函数调用轮次与函数结果轮次交错出现。
	Turns []models.Content
}

// Texts 返回结果中所有非空文本部分，保持产生顺序。
func (r *InvokeResult) Texts() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, turn := range r.Turns {
		if t := turn.JoinedText(); t != "" {
			out = append(out, t)
		}
	}
	return out
}
