package maintenance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"FactorySense/internal/a2a"
	"FactorySense/internal/agent"
	"FactorySense/internal/models"
)

type stubAgent struct {
	turns []models.Content
	err   error
	got   string
}

func (s *stubAgent) Name() string { return "stub" }

func (s *stubAgent) Invoke(ctx context.Context, conversation []models.Content) (*agent.InvokeResult, error) {
	s.got = conversation[len(conversation)-1].JoinedText()
	if s.err != nil {
		return nil, s.err
	}
	return &agent.InvokeResult{Turns: s.turns}, nil
}

func textTurn(text string) models.Content {
	return models.Content{Role: models.SpeakerAssistant, Parts: []*models.Part{{Text: text}}}
}

func TestA2AHandlerReturnsLastText(t *testing.T) {
	stub := &stubAgent{turns: []models.Content{textTurn("thinking"), textTurn("Maintenance Schedule Created")}}
	handler := NewA2AHandler(stub)

	reply, err := handler(context.Background(), a2a.NewTextMessage("m1", "user", "schedule wo-2024-9f3a"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if reply != "Maintenance Schedule Created" {
		t.Errorf("reply = %q", reply)
	}
	if stub.got != "schedule wo-2024-9f3a" {
		t.Errorf("agent received %q", stub.got)
	}
}

func TestA2AHandlerEmptyResult(t *testing.T) {
	// 工具调用轮次没有任何文本部分，回复应为空而不是越界。
	call := models.Content{Role: models.SpeakerAssistant, Parts: []*models.Part{
		{FunctionCall: &models.FunctionCall{ID: "call_1", Name: "get_maintenance_history"}},
	}}
	handler := NewA2AHandler(&stubAgent{turns: []models.Content{call}})

	reply, err := handler(context.Background(), a2a.NewTextMessage("m1", "user", "hello"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if reply != "" {
		t.Errorf("reply = %q, want empty", reply)
	}
}

func TestA2AHandlerMapsErrorsToText(t *testing.T) {
	wrapped := fmt.Errorf("processing parts order request: %w", ErrNoSuppliers)
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"no suppliers", wrapped, "Error: " + wrapped.Error()},
		{"store failure", errors.New("processing maintenance schedule request: store down"), "Error processing maintenance schedule request: store down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewA2AHandler(&stubAgent{err: tc.err})
			reply, err := handler(context.Background(), a2a.NewTextMessage("m1", "user", "hello"))
			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			if reply != tc.want {
				t.Errorf("reply = %q, want %q", reply, tc.want)
			}
		})
	}
}
