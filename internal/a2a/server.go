package a2a

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MessageHandler processes an incoming A2A message and returns the agent's reply text.
type MessageHandler func(ctx context.Context, message Message) (string, error)

// Server exposes one agent over the A2A protocol: the agent card at the
// well-known path and a JSON-RPC endpoint at the root.
type Server struct {
	card    AgentCard
	handler MessageHandler
}

// NewServer creates an A2A server for the given card and message handler.
func NewServer(card AgentCard, handler MessageHandler) *Server {
	return &Server{card: card, handler: handler}
}

// RegisterRoutes mounts the A2A endpoints on the given gin engine.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET(WellKnownCardPath, s.getAgentCard)
	router.POST("/", s.handleRPC)
}

// getAgentCard serves the discovery document.
func (s *Server) getAgentCard(c *gin.Context) {
	c.JSON(http.StatusOK, s.card)
}

// handleRPC dispatches a JSON-RPC request. Protocol errors are reported in the
// JSON-RPC envelope with HTTP 200, as the A2A transport expects.
func (s *Server) handleRPC(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: CodeParseError, Message: "failed to parse JSON-RPC request: " + err.Error()},
		})
		return
	}

	if req.Method != MethodMessageSend {
		c.JSON(http.StatusOK, Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &Error{Code: CodeMethodNotFound, Message: "unsupported method: " + req.Method},
		})
		return
	}

	var params MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		c.JSON(http.StatusOK, Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &Error{Code: CodeInvalidParams, Message: "invalid message/send params: " + err.Error()},
		})
		return
	}

	replyText, err := s.handler(c.Request.Context(), params.Message)
	if err != nil {
		// Agents report their own failures as text. An error here means the
		// handler itself could not run.
		c.JSON(http.StatusOK, Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &Error{Code: CodeInternalError, Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  NewTextMessage(uuid.New().String(), "agent", replyText),
	})
}
