package workflow

import (
	"context"
	"time"

	"FactorySense/internal/agent"
	"FactorySense/internal/models"
)

// DefaultStepTimeout bounds a single agent invocation when no timeout is
// configured. Hosted and peer agents are network round trips to managed
// services, so this sits in the tens of seconds.
const DefaultStepTimeout = 60 * time.Second

// StepExecutor adapts one Agent into a text-in/text-out pipeline stage.
// It records full diagnostic detail into the run's trace as a side effect.
type StepExecutor struct {
	agent   agent.Agent
	timeout time.Duration
}

// NewStepExecutor wraps an agent. A non-positive timeout falls back to
// DefaultStepTimeout.
func NewStepExecutor(a agent.Agent, timeout time.Duration) *StepExecutor {
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	return &StepExecutor{agent: a, timeout: timeout}
}

// AgentName returns the name of the wrapped agent.
func (s *StepExecutor) AgentName() string {
	return s.agent.Name()
}

// Execute runs the agent on inputText and appends an AgentStepResult to trace.
//
// The agent receives exactly one user message containing inputText. Prior
// conversation and tool-call history never crosses a step boundary: the
// backends do not share a compatible history representation, and replaying one
// backend's tool-call turns into another fails to deserialize.
//
// Execute never propagates a failure. When the invocation errors out, both
// textOutput and finalMessage are set to a synthetic "Error: ..." string, the
// step is still traced, and that string is returned as the next step's input.
// The returned error reports the failure to the caller without changing any of
// that; best-effort runners ignore it.
func (s *StepExecutor) Execute(ctx context.Context, inputText string, trace *Trace) (string, error) {
	result := models.AgentStepResult{
		AgentName: s.agent.Name(),
		ToolCalls: []models.ToolCallInfo{},
	}

	stepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conversation := []models.Content{
		{
			Role:  models.SpeakerUser,
			Parts: []*models.Part{{Text: inputText}},
		},
	}

	invoked, err := s.agent.Invoke(stepCtx, conversation)
	if err != nil {
		errText := "Error: " + err.Error()
		result.TextOutput = errText
		result.FinalMessage = errText
		trace.Append(result)
		return errText, err
	}

	for _, turn := range invoked.Turns {
		for _, part := range turn.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.Text != "":
				result.TextOutput += part.Text
				result.FinalMessage = part.Text
			case part.FunctionCall != nil:
				result.ToolCalls = append(result.ToolCalls, models.ToolCallInfo{
					ToolName:  part.FunctionCall.Name,
					CallID:    part.FunctionCall.ID,
					Arguments: part.FunctionCall.ArgsToString(),
				})
			case part.FunctionResponse != nil:
				attachToolResult(result.ToolCalls, part.FunctionResponse)
			}
		}
	}

	trace.Append(result)
	return result.FinalMessage, nil
}

// attachToolResult matches a tool result to the most recent recorded call.
// Matching is by call id; backends that issue no call ids are matched by tool
// name instead.
func attachToolResult(calls []models.ToolCallInfo, resp *models.FunctionResponse) {
	for i := len(calls) - 1; i >= 0; i-- {
		matched := false
		if resp.ID != "" {
			matched = calls[i].CallID == resp.ID
		} else {
			matched = calls[i].ToolName == resp.Name
		}
		if matched {
			truncated := models.TruncateToolResult(resp.ResponseToString())
			calls[i].Result = &truncated
			return
		}
	}
}
