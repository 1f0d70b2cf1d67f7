package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"FactorySense/internal/a2a"
	"FactorySense/internal/config"
	"FactorySense/internal/llm"
	"FactorySense/internal/maintenance"
	"FactorySense/internal/models"
	fshttp "FactorySense/pkg/http"
)

// fakePlatform serves the hosted agent directory and run endpoints. Each
// agent echoes the last input text behind its own prefix.
func fakePlatform(t *testing.T, agents ...string) *httptest.Server {
	t.Helper()
	known := map[string]bool{}
	for _, a := range agents {
		known[a] = true
	}
	var lastRun struct {
		Messages []models.Content `json:"messages"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/agents/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/agents/")
		name := strings.TrimSuffix(rest, "/run")
		if !known[name] {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]string{"id": "agent-" + name, "name": name})
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&lastRun); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var input string
		for _, m := range lastRun.Messages {
			if txt := m.JoinedText(); txt != "" {
				input = txt
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"turns": []models.Content{{
			Role:  models.SpeakerAssistant,
			Parts: []*models.Part{{Text: name + ": " + input}},
		}}})
	})
	return httptest.NewServer(mux)
}

func plainClient(t *testing.T) *fshttp.Client {
	t.Helper()
	c, err := fshttp.NewClient(config.CircuitBreakerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func hostedConfig(endpoint string) *config.AppConfig {
	return &config.AppConfig{
		Agents: config.AgentsConfig{
			ProjectEndpoint:  endpoint,
			AnomalyAgentName: "AnomalyDetectionAgent",
			FaultAgentName:   "FaultDiagnosisAgent",
		},
		Workflow: config.WorkflowConfig{StepTimeout: "5s"},
	}
}

func TestResolvesHostedAgentsInOrder(t *testing.T) {
	ts := fakePlatform(t, "AnomalyDetectionAgent", "FaultDiagnosisAgent")
	defer ts.Close()

	svc := New(context.Background(), hostedConfig(ts.URL), Deps{Client: plainClient(t)})
	got := svc.AgentNames()
	want := []string{"AnomalyDetectionAgent", "FaultDiagnosisAgent"}
	if len(got) != len(want) {
		t.Fatalf("agents = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("agent[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolutionFailureSkipsAgent(t *testing.T) {
	// 平台上只有异常分类 Agent，故障诊断解析失败后应被跳过。
	ts := fakePlatform(t, "AnomalyDetectionAgent")
	defer ts.Close()

	svc := New(context.Background(), hostedConfig(ts.URL), Deps{Client: plainClient(t)})
	if got := svc.AgentNames(); len(got) != 1 || got[0] != "AnomalyDetectionAgent" {
		t.Fatalf("agents = %v, want only AnomalyDetectionAgent", got)
	}
}

type nullStore struct{ maintenance.Store }
type nullLLM struct{ llm.LLM }

func TestLocalModeUsesInProcessAgents(t *testing.T) {
	cfg := &config.AppConfig{
		Agents: config.AgentsConfig{
			LocalAgents:       true,
			SchedulerAgentURL: "http://should-be-ignored",
			PartsAgentURL:     "http://should-be-ignored",
		},
	}
	svc := New(context.Background(), cfg, Deps{Store: nullStore{}, LLM: nullLLM{}})
	got := svc.AgentNames()
	want := []string{maintenance.SchedulerAgentName, maintenance.PartsAgentName}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("agents = %v, want %v", got, want)
	}
}

func TestAnalyzeMachineWithoutAgents(t *testing.T) {
	svc := New(context.Background(), &config.AppConfig{}, Deps{})
	if _, err := svc.AnalyzeMachine(context.Background(), "machine-042", nil); err != ErrNoAgentsAvailable {
		t.Fatalf("err = %v, want ErrNoAgentsAvailable", err)
	}
}

func TestAnalyzeMachineSeedsFirstAgent(t *testing.T) {
	ts := fakePlatform(t, "AnomalyDetectionAgent", "FaultDiagnosisAgent")
	defer ts.Close()

	svc := New(context.Background(), hostedConfig(ts.URL), Deps{Client: plainClient(t)})
	telemetry := map[string]any{"vibration": 12.5, "temperature": 88}
	resp, err := svc.AnalyzeMachine(context.Background(), "machine-042", telemetry)
	if err != nil {
		t.Fatalf("AnalyzeMachine: %v", err)
	}

	if len(resp.AgentSteps) != 2 {
		t.Fatalf("got %d steps, want 2", len(resp.AgentSteps))
	}
	first := resp.AgentSteps[0].TextOutput
	if !strings.Contains(first, "Classify the following anomalies for machine machine-042:") {
		t.Errorf("seed prompt not forwarded to first agent: %q", first)
	}
	if !strings.Contains(first, `"vibration":12.5`) {
		t.Errorf("telemetry missing from seed prompt: %q", first)
	}
	if resp.FinalMessage == nil || !strings.HasPrefix(*resp.FinalMessage, "FaultDiagnosisAgent:") {
		t.Errorf("final message = %v", resp.FinalMessage)
	}
}

// fakePeer serves an A2A agent card and echoes message/send requests.
func fakePeer(name string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(a2a.WellKnownCardPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(a2a.AgentCard{Name: name, URL: "http://example", Version: "1.0.0"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req a2a.Request
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(a2a.Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  a2a.NewTextMessage("m1", "agent", name+" reply"),
		})
	})
	return httptest.NewServer(mux)
}

type staticResolver struct {
	addrs map[string][]string
}

func (r staticResolver) Discover(serviceName string) ([]string, error) {
	return r.addrs[serviceName], nil
}

func TestPeerResolvedViaServiceDiscovery(t *testing.T) {
	peer := fakePeer("RepairPlannerAgent")
	defer peer.Close()

	cfg := &config.AppConfig{Workflow: config.WorkflowConfig{StepTimeout: "5s"}}
	svc := New(context.Background(), cfg, Deps{
		Client:   plainClient(t),
		Resolver: staticResolver{addrs: map[string][]string{"repair_planner": {peer.URL}}},
	})
	if got := svc.AgentNames(); len(got) != 1 || got[0] != "RepairPlannerAgent" {
		t.Fatalf("agents = %v, want discovered RepairPlannerAgent", got)
	}
}

type recordingPublisher struct {
	entries []models.StepLogEntry
}

func (p *recordingPublisher) PublishStepEvent(_ context.Context, entry *models.StepLogEntry) error {
	p.entries = append(p.entries, *entry)
	return nil
}

func TestObserverPublishesProgressEvents(t *testing.T) {
	ts := fakePlatform(t, "AnomalyDetectionAgent", "FaultDiagnosisAgent")
	defer ts.Close()

	pub := &recordingPublisher{}
	svc := New(context.Background(), hostedConfig(ts.URL), Deps{Client: plainClient(t), Publisher: pub})
	if _, err := svc.AnalyzeMachine(context.Background(), "machine-042", nil); err != nil {
		t.Fatalf("AnalyzeMachine: %v", err)
	}

	wantStatuses := []models.StepLogStatus{
		models.StatusRunStarted,
		models.StatusStepFinished,
		models.StatusStepFinished,
		models.StatusRunFinished,
	}
	if len(pub.entries) != len(wantStatuses) {
		t.Fatalf("got %d events, want %d", len(pub.entries), len(wantStatuses))
	}
	for i, want := range wantStatuses {
		if pub.entries[i].Status != want {
			t.Errorf("event[%d] status = %s, want %s", i, pub.entries[i].Status, want)
		}
		if pub.entries[i].MachineID != "machine-042" {
			t.Errorf("event[%d] machine id = %q", i, pub.entries[i].MachineID)
		}
		if pub.entries[i].RunID == "" {
			t.Errorf("event[%d] has no run id", i)
		}
	}
}
