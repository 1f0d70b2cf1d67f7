package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FactorySense/internal/a2a"
	"FactorySense/internal/models"
	fshttp "FactorySense/pkg/http"
	"FactorySense/pkg/util"

	"github.com/google/uuid"
)

// 对等 Agent 的卡片缓存：避免每次调用都重新抓取 well-known 文档。
var cardCache, _ = util.NewLRUCache[string, a2a.AgentCard](32, 5*time.Minute)

// PeerAgent 通过 A2A 协议调用部署在其它服务中的 Agent。
type PeerAgent struct {
	name    string
	baseURL string
	client  *fshttp.Client
}

// NewPeerAgent 抓取对方的 agent card 并返回一个可调用的 PeerAgent。
// 卡片按 baseURL 缓存一段时间。
func NewPeerAgent(ctx context.Context, client *fshttp.Client, baseURL string) (*PeerAgent, error) {
	base := strings.TrimRight(baseURL, "/")

	card, ok := cardCache.Get(base)
	if !ok {
		fetched, err := fetchAgentCard(ctx, client, base)
		if err != nil {
			return nil, err
		}
		card = fetched
		cardCache.Put(base, card)
	}

	return &PeerAgent{
		name:    card.Name,
		baseURL: base,
		client:  client,
	}, nil
}

// fetchAgentCard 抓取并解析对方的 well-known 卡片文档。
func fetchAgentCard(ctx context.Context, client *fshttp.Client, base string) (a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+a2a.WellKnownCardPath, nil)
	if err != nil {
		return a2a.AgentCard{}, fmt.Errorf("failed to build agent card request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return a2a.AgentCard{}, fmt.Errorf("failed to fetch agent card from %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return a2a.AgentCard{}, fmt.Errorf("agent card request to %s returned status %d", base, resp.StatusCode)
	}

	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return a2a.AgentCard{}, fmt.Errorf("failed to decode agent card from %s: %w", base, err)
	}
	if card.Name == "" {
		return a2a.AgentCard{}, fmt.Errorf("agent card from %s has no name", base)
	}
	return card, nil
}

// Name 返回对方卡片中声明的 Agent 名称。
func (p *PeerAgent) Name() string {
	return p.name
}

// Invoke 通过 message/send 把对话发送给对等 Agent。
// 对话中的每个文本轮次作为消息的一个 part，保持顺序，
// 使对方按协议约定读取最后一个 part 即得到上一个 Agent 的输出。
func (p *PeerAgent) Invoke(ctx context.Context, conversation []models.Content) (*InvokeResult, error) {
	msg := a2a.Message{
		MessageID: uuid.New().String(),
		Role:      "user",
	}
	for _, turn := range conversation {
		if t := turn.JoinedText(); t != "" {
			msg.Parts = append(msg.Parts, a2a.MessagePart{Kind: "text", Text: t})
		}
	}

	params, err := json.Marshal(a2a.MessageSendParams{Message: msg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message/send params: %w", err)
	}

	rpcReq := a2a.Request{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  a2a.MethodMessageSend,
		Params:  params,
	}
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build message/send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("peer agent %q call failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("peer agent %q returned status %d: %s", p.name, resp.StatusCode, string(respBody))
	}

	var rpcResp struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      any             `json:"id"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *a2a.Error      `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode JSON-RPC response from %q: %w", p.name, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("peer agent %q returned RPC error %d: %s", p.name, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var reply a2a.Message
	if err := json.Unmarshal(rpcResp.Result, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode reply message from %q: %w", p.name, err)
	}

	return &InvokeResult{
		Turns: []models.Content{
			{
				Role:  models.SpeakerAssistant,
				Parts: []*models.Part{{Text: reply.Text()}},
			},
		},
	}, nil
}
