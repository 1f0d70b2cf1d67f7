// Package a2a implements the small slice of the Agent-to-Agent protocol the
// workflow needs: agent card discovery and the message/send JSON-RPC method.
package a2a

import "encoding/json"

// WellKnownCardPath is the relative path where an agent publishes its card.
const WellKnownCardPath = "/.well-known/agent-card.json"

// MethodMessageSend is the JSON-RPC method used to deliver a message to an agent.
const MethodMessageSend = "message/send"

// AgentCapabilities describes the optional protocol features an agent supports.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentSkill describes a single capability advertised on an agent card.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCard is the discovery document an agent serves at the well-known path.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
	Skills             []AgentSkill      `json:"skills,omitempty"`
}

// MessagePart is one part of an A2A message. Only text parts are supported.
type MessagePart struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Message is a single A2A message exchanged via message/send.
type Message struct {
	MessageID string        `json:"messageId"`
	Role      string        `json:"role"`
	Parts     []MessagePart `json:"parts"`
}

// Text returns the text of the last text part of the message. Agents read the
// last part so a forwarded conversation yields the previous agent's output,
// not the original user prompt.
func (m Message) Text() string {
	for i := len(m.Parts) - 1; i >= 0; i-- {
		if m.Parts[i].Text != "" {
			return m.Parts[i].Text
		}
	}
	return ""
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(id, role, text string) Message {
	return Message{
		MessageID: id,
		Role:      role,
		Parts:     []MessagePart{{Kind: "text", Text: text}},
	}
}

// MessageSendParams is the params payload for message/send.
type MessageSendParams struct {
	Message Message `json:"message"`
}

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// JSON-RPC 2.0 error codes used by the server.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)
