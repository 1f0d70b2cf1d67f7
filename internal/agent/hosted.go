package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"FactorySense/internal/models"
	fshttp "FactorySense/pkg/http"
)

// HostedAgent 调用托管在外部 Agent 平台上的 Agent。
// 平台在服务端执行 Agent 的工具调用，并把完整的轮次返回给调用方。
type HostedAgent struct {
	name            string
	projectEndpoint string
	client          *fshttp.Client
}

// hostedRunRequest 是平台运行接口的请求体。
type hostedRunRequest struct {
	Messages []models.Content `json:"messages"`
}

// hostedRunResponse 是平台运行接口的响应体。
type hostedRunResponse struct {
	Turns []models.Content `json:"turns"`
}

// hostedAgentInfo 是平台目录接口返回的 Agent 描述。
type hostedAgentInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
}

// NewHostedAgent 按名称解析平台上的托管 Agent。
// 解析失败（Agent 不存在或平台不可达）返回错误，调用方决定是否跳过该步骤。
func NewHostedAgent(ctx context.Context, client *fshttp.Client, projectEndpoint, name string) (*HostedAgent, error) {
	endpoint := strings.TrimRight(projectEndpoint, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/agents/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build resolve request for agent %q: %w", name, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hosted agent %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("hosted agent %q not available: status %d: %s", name, resp.StatusCode, string(body))
	}

	var info hostedAgentInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode agent directory entry for %q: %w", name, err)
	}
	if info.Name == "" {
		info.Name = name
	}

	return &HostedAgent{
		name:            info.Name,
		projectEndpoint: endpoint,
		client:          client,
	}, nil
}

// Name 返回托管 Agent 的名称。
func (h *HostedAgent) Name() string {
	return h.name
}

// Invoke 把对话发送给平台的运行接口，并返回平台产生的全部轮次。
func (h *HostedAgent) Invoke(ctx context.Context, conversation []models.Content) (*InvokeResult, error) {
	body, err := json.Marshal(hostedRunRequest{Messages: conversation})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.projectEndpoint+"/agents/"+h.name+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hosted agent %q run failed: %w", h.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("hosted agent %q run failed: status %d: %s", h.name, resp.StatusCode, string(respBody))
	}

	var runResp hostedRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&runResp); err != nil {
		return nil, fmt.Errorf("failed to decode run response from agent %q: %w", h.name, err)
	}

	return &InvokeResult{Turns: runResp.Turns}, nil
}
