package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"FactorySense/internal/a2a"
	"FactorySense/internal/config"
	"FactorySense/internal/models"
	fshttp "FactorySense/pkg/http"
)

func newPlainClient(t *testing.T) *fshttp.Client {
	t.Helper()
	client, err := fshttp.NewClient(config.CircuitBreakerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func userText(text string) models.Content {
	return models.Content{
		Role:  models.SpeakerUser,
		Parts: []*models.Part{{Text: text}},
	}
}

func TestHostedAgentResolveAndInvoke(t *testing.T) {
	var gotRun hostedRunRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/agents/AnomalyClassificationAgent", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(hostedAgentInfo{ID: "agt-1", Name: "AnomalyClassificationAgent", Model: "gpt-4o"})
	})
	mux.HandleFunc("/agents/AnomalyClassificationAgent/run", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRun); err != nil {
			t.Errorf("decode run request: %v", err)
		}
		json.NewEncoder(w).Encode(hostedRunResponse{
			Turns: []models.Content{
				{Role: models.SpeakerAssistant, Parts: []*models.Part{{Text: "critical vibration anomaly"}}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hosted, err := NewHostedAgent(context.Background(), newPlainClient(t), srv.URL, "AnomalyClassificationAgent")
	if err != nil {
		t.Fatalf("NewHostedAgent: %v", err)
	}
	if hosted.Name() != "AnomalyClassificationAgent" {
		t.Errorf("Name() = %q", hosted.Name())
	}

	result, err := hosted.Invoke(context.Background(), []models.Content{userText("classify this")})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(gotRun.Messages) != 1 || gotRun.Messages[0].JoinedText() != "classify this" {
		t.Errorf("run request messages = %+v", gotRun.Messages)
	}
	texts := result.Texts()
	if len(texts) != 1 || texts[0] != "critical vibration anomaly" {
		t.Errorf("Texts() = %v", texts)
	}
}

func TestHostedAgentResolveFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewHostedAgent(context.Background(), newPlainClient(t), srv.URL, "MissingAgent"); err == nil {
		t.Fatal("expected resolve error for missing agent")
	}
}

func TestPeerAgentInvoke(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(a2a.WellKnownCardPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(a2a.AgentCard{Name: "RepairPlannerAgent", URL: "/", Version: "1.0.0"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req a2a.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
		}
		var params a2a.MessageSendParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			t.Errorf("decode params: %v", err)
		}
		// The last part must be the most recent turn of the conversation.
		if got := params.Message.Text(); got != "diagnosis: bearing wear" {
			t.Errorf("last part = %q", got)
		}
		json.NewEncoder(w).Encode(a2a.Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  a2a.NewTextMessage("m-reply", "agent", "repair plan ready"),
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	peer, err := NewPeerAgent(context.Background(), newPlainClient(t), srv.URL)
	if err != nil {
		t.Fatalf("NewPeerAgent: %v", err)
	}
	if peer.Name() != "RepairPlannerAgent" {
		t.Errorf("Name() = %q", peer.Name())
	}

	result, err := peer.Invoke(context.Background(), []models.Content{
		userText("classify anomalies for machine m-100"),
		{Role: models.SpeakerAssistant, Parts: []*models.Part{{Text: "diagnosis: bearing wear"}}},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	texts := result.Texts()
	if len(texts) != 1 || texts[0] != "repair plan ready" {
		t.Errorf("Texts() = %v", texts)
	}
}

func TestPeerAgentRPCError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(a2a.WellKnownCardPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(a2a.AgentCard{Name: "FlakyAgent", URL: "/", Version: "1.0.0"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(a2a.Response{
			JSONRPC: "2.0",
			Error:   &a2a.Error{Code: a2a.CodeInternalError, Message: "boom"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	peer, err := NewPeerAgent(context.Background(), newPlainClient(t), srv.URL)
	if err != nil {
		t.Fatalf("NewPeerAgent: %v", err)
	}

	if _, err := peer.Invoke(context.Background(), []models.Content{userText("hi")}); err == nil {
		t.Fatal("expected error from RPC error response")
	}
}
