package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"FactorySense/internal/config"
	"FactorySense/internal/models"
	"FactorySense/internal/workflow_service/service"
	fshttp "FactorySense/pkg/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakePlatform mirrors the hosted agent platform: a directory endpoint
// and a run endpoint where each agent echoes its input.
func fakePlatform(agents ...string) *httptest.Server {
	known := map[string]bool{}
	for _, a := range agents {
		known[a] = true
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/agents/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/agents/"), "/run")
		if !known[name] {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]string{"id": "agent-" + name, "name": name})
			return
		}
		var run struct {
			Messages []models.Content `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&run)
		var input string
		for _, m := range run.Messages {
			if txt := m.JoinedText(); txt != "" {
				input = txt
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"turns": []models.Content{{
			Role:  models.SpeakerAssistant,
			Parts: []*models.Part{{Text: name + " handled: " + input}},
		}}})
	})
	return httptest.NewServer(mux)
}

func newTestRouter(t *testing.T, platformURL string, agents config.AgentsConfig) *gin.Engine {
	t.Helper()
	agents.ProjectEndpoint = platformURL
	cfg := &config.AppConfig{
		Agents:   agents,
		Workflow: config.WorkflowConfig{StepTimeout: "5s"},
	}
	client, err := fshttp.NewClient(config.CircuitBreakerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	svc := service.New(context.Background(), cfg, service.Deps{Client: client})
	return NewRouter(NewHandler(svc, nil))
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, "", config.AgentsConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "Healthy" {
		t.Errorf("status = %q, want Healthy", body.Status)
	}
	if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC 3339: %v", body.Timestamp, err)
	}
}

func TestAnalyzeMachineEndToEnd(t *testing.T) {
	ts := fakePlatform("AnomalyDetectionAgent", "FaultDiagnosisAgent")
	defer ts.Close()
	router := newTestRouter(t, ts.URL, config.AgentsConfig{
		AnomalyAgentName: "AnomalyDetectionAgent",
		FaultAgentName:   "FaultDiagnosisAgent",
	})

	payload := `{"machine_id": "machine-042", "telemetry": {"vibration": 12.5}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze_machine", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var resp models.WorkflowResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.AgentSteps) != 2 {
		t.Fatalf("got %d steps, want 2", len(resp.AgentSteps))
	}
	if resp.AgentSteps[0].AgentName != "AnomalyDetectionAgent" {
		t.Errorf("first step = %q", resp.AgentSteps[0].AgentName)
	}
	if resp.FinalMessage == nil || !strings.HasPrefix(*resp.FinalMessage, "FaultDiagnosisAgent handled:") {
		t.Errorf("finalMessage = %v", resp.FinalMessage)
	}
}

func TestAnalyzeMachineWithoutAgentsReturnsProblemDetails(t *testing.T) {
	router := newTestRouter(t, "", config.AgentsConfig{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze_machine",
		bytes.NewBufferString(`{"machine_id": "machine-042"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var pd struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pd); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pd.Status != http.StatusInternalServerError || pd.Title == "" || pd.Type == "" {
		t.Errorf("problem details incomplete: %+v", pd)
	}
	if !strings.Contains(pd.Detail, "no agents") {
		t.Errorf("detail = %q", pd.Detail)
	}
}

func TestAnalyzeMachineRejectsMissingMachineID(t *testing.T) {
	router := newTestRouter(t, "", config.AgentsConfig{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze_machine",
		bytes.NewBufferString(`{"telemetry": {}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestWeatherForecast(t *testing.T) {
	router := newTestRouter(t, "", config.AgentsConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/weatherforecast", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var forecast []WeatherForecast
	if err := json.Unmarshal(w.Body.Bytes(), &forecast); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(forecast) != 5 {
		t.Fatalf("got %d days, want 5", len(forecast))
	}
	summaries := map[string]bool{}
	for _, s := range weatherSummaries {
		summaries[s] = true
	}
	for _, day := range forecast {
		if day.TemperatureC < -20 || day.TemperatureC > 55 {
			t.Errorf("temperatureC out of range: %d", day.TemperatureC)
		}
		if want := 32 + int(float64(day.TemperatureC)/0.5556); day.TemperatureF != want {
			t.Errorf("temperatureF = %d, want %d", day.TemperatureF, want)
		}
		if !summaries[day.Summary] {
			t.Errorf("unknown summary %q", day.Summary)
		}
	}
}
