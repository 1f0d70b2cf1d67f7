package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FactorySense/internal/agent"
	"FactorySense/internal/llm"
	"FactorySense/internal/models"
	"FactorySense/pkg/logger"
)

// SchedulerAgentName identifies the scheduling agent in workflow output.
const SchedulerAgentName = "MaintenanceSchedulerAgent"

// windowLookaheadDays is how far ahead the agent searches for a slot.
const windowLookaheadDays = 14

// SchedulerAgent turns a repair plan into a concrete maintenance
// schedule. It extracts the work order reference from the upstream text,
// gathers the machine's failure history and the open maintenance
// windows, and asks the model for a risk-weighted scheduling decision.
type SchedulerAgent struct {
	client llm.LLM
	store  Store
	log    *logger.Logger
	now    func() time.Time
}

var _ agent.Agent = (*SchedulerAgent)(nil)

func NewSchedulerAgent(client llm.LLM, store Store) *SchedulerAgent {
	return &SchedulerAgent{
		client: client,
		store:  store,
		log:    logger.New(SchedulerAgentName, "", ""),
		now:    time.Now,
	}
}

func (a *SchedulerAgent) Name() string { return SchedulerAgentName }

// schedulePrediction is the JSON shape the model is instructed to emit.
type schedulePrediction struct {
	ScheduledDate               string  `json:"scheduledDate"`
	MaintenanceWindowID         string  `json:"maintenanceWindowId"`
	RiskScore                   float64 `json:"riskScore"`
	PredictedFailureProbability float64 `json:"predictedFailureProbability"`
	RecommendedAction           string  `json:"recommendedAction"`
	Reasoning                   string  `json:"reasoning"`
}

func (a *SchedulerAgent) Invoke(ctx context.Context, conversation []models.Content) (*agent.InvokeResult, error) {
	input := lastText(conversation)
	workOrderID := ExtractWorkOrderID(input)
	log := a.log.WithAgent(SchedulerAgentName)

	wo, err := a.store.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("processing maintenance schedule request: %w", err)
	}
	history, err := a.store.GetMaintenanceHistory(ctx, wo.MachineID)
	if err != nil {
		return nil, fmt.Errorf("processing maintenance schedule request: %w", err)
	}
	windows, err := a.store.GetAvailableMaintenanceWindows(ctx, windowLookaheadDays)
	if err != nil {
		return nil, fmt.Errorf("processing maintenance schedule request: %w", err)
	}

	chat, err := a.store.GetMachineChatHistory(ctx, wo.MachineID)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_error"}).Warn("chat history unavailable, continuing without it")
		chat = nil
	}

	// The upfront store reads are surfaced as tool-call turns so they
	// show up in the workflow trace.
	var turns []models.Content
	turns = append(turns, recordLookup(1, "get_work_order",
		map[string]any{"workOrderId": workOrderID}, map[string]any{"workOrder": wo})...)
	turns = append(turns, recordLookup(2, "get_maintenance_history",
		map[string]any{"machineId": wo.MachineID}, map[string]any{"history": history})...)
	turns = append(turns, recordLookup(3, "get_available_maintenance_windows",
		map[string]any{"days": windowLookaheadDays}, map[string]any{"windows": windows})...)

	prompt := a.buildPrompt(wo, history, windows, chat, input)
	seed := []models.Content{{
		Role:  models.SpeakerUser,
		Parts: []*models.Part{{Text: prompt}},
	}}

	replyText, loopTurns, err := runToolLoop(ctx, a.client, seed, a.executeTool)
	turns = append(turns, loopTurns...)
	if err != nil {
		return nil, fmt.Errorf("processing maintenance schedule request: %w", err)
	}

	prediction, err := parsePrediction(replyText)
	if err != nil {
		return nil, fmt.Errorf("processing maintenance schedule request: %w", err)
	}

	schedule := a.buildSchedule(wo, windows, prediction)
	if err := a.store.SaveMaintenanceSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("processing maintenance schedule request: %w", err)
	}
	if err := a.store.UpdateWorkOrderStatus(ctx, wo.ID, models.WorkOrderScheduled); err != nil {
		return nil, fmt.Errorf("processing maintenance schedule request: %w", err)
	}

	reply := formatScheduleReply(schedule)
	if err := a.store.SaveMachineChatHistory(ctx, wo.MachineID, appendHistory(chat, input, reply)); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_error"}).Warn("failed to persist chat history")
	}
	log.WithPayload(map[string]any{"scheduleId": schedule.ID, "workOrderId": wo.ID}).
		Info("maintenance schedule created")

	turns = append(turns, models.Content{
		Role:  models.SpeakerAssistant,
		Parts: []*models.Part{{Text: reply}},
	})
	return &agent.InvokeResult{Turns: turns}, nil
}

func (a *SchedulerAgent) buildPrompt(wo *models.WorkOrder, history []models.MaintenanceHistory, windows []models.MaintenanceWindow, chat []models.ChatMessage, input string) string {
	var b strings.Builder
	b.WriteString(schedulerInstructions)
	b.WriteString("\n\n")
	b.WriteString(buildSchedulerContext(wo, history, windows))
	if recent := recentMessages(chat, 5); len(recent) > 0 {
		b.WriteString("\nPrevious conversation about this machine:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	b.WriteString("\nUser request: ")
	b.WriteString(input)
	return b.String()
}

func (a *SchedulerAgent) executeTool(ctx context.Context, call *models.FunctionCall) map[string]any {
	switch call.Name {
	case "get_maintenance_history":
		machineID, _ := call.Args["machineId"].(string)
		history, err := a.store.GetMaintenanceHistory(ctx, machineID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"history": history}
	case "get_available_maintenance_windows":
		days := windowLookaheadDays
		if d, ok := call.Args["days"].(float64); ok && d > 0 {
			days = int(d)
		}
		windows, err := a.store.GetAvailableMaintenanceWindows(ctx, days)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"windows": windows}
	default:
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", call.Name)}
	}
}

func parsePrediction(replyText string) (*schedulePrediction, error) {
	raw, ok := ExtractJSON(replyText)
	if !ok {
		return nil, fmt.Errorf("model reply contains no JSON: %q", replyText)
	}
	var p schedulePrediction
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode schedule prediction: %w", err)
	}
	return &p, nil
}

func (a *SchedulerAgent) buildSchedule(wo *models.WorkOrder, windows []models.MaintenanceWindow, p *schedulePrediction) *models.MaintenanceSchedule {
	scheduledDate := parseFlexibleTime(p.ScheduledDate, a.now().AddDate(0, 0, 7))
	var window *models.MaintenanceWindow
	for i := range windows {
		if windows[i].ID == p.MaintenanceWindowID {
			window = &windows[i]
			scheduledDate = windows[i].StartTime
			break
		}
	}
	return &models.MaintenanceSchedule{
		ID:                          fmt.Sprintf("sched-%d", a.now().Unix()),
		WorkOrderID:                 wo.ID,
		MachineID:                   wo.MachineID,
		ScheduledDate:               scheduledDate,
		MaintenanceWindow:           window,
		RiskScore:                   p.RiskScore,
		PredictedFailureProbability: p.PredictedFailureProbability,
		RecommendedAction:           p.RecommendedAction,
		Reasoning:                   p.Reasoning,
		CreatedAt:                   a.now().UTC(),
	}
}

func formatScheduleReply(s *models.MaintenanceSchedule) string {
	return fmt.Sprintf(
		"Maintenance Schedule Created:\n"+
			"- Schedule ID: %s\n"+
			"- Machine: %s\n"+
			"- Scheduled Date: %s\n"+
			"- Risk Score: %.0f/100\n"+
			"- Failure Probability: %.0f%%\n"+
			"- Recommended Action: %s\n"+
			"- Reasoning: %s",
		s.ID, s.MachineID, s.ScheduledDate.Format("2006-01-02 15:04"),
		s.RiskScore, s.PredictedFailureProbability, s.RecommendedAction, s.Reasoning)
}

// parseFlexibleTime accepts the date formats models actually emit.
func parseFlexibleTime(value string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}

// lastText returns the newest non-empty text in the conversation, which
// for a workflow step is the previous agent's output.
func lastText(conversation []models.Content) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if t := conversation[i].JoinedText(); t != "" {
			return t
		}
	}
	return ""
}
