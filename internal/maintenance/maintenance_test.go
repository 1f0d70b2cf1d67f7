package maintenance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"FactorySense/internal/models"
)

type scriptedLLM struct {
	replies  []*models.GenerateContentResponse
	requests []*models.GenerateContentRequest
}

func (s *scriptedLLM) GenerateContent(_ context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.replies) {
		return nil, errors.New("scripted llm: no more replies")
	}
	return s.replies[len(s.requests)-1], nil
}

func (s *scriptedLLM) GenerateContentStream(context.Context, *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	return nil, errors.New("streaming not supported")
}

func textReply(text string) *models.GenerateContentResponse {
	return &models.GenerateContentResponse{Content: []models.Content{{
		Role:  models.SpeakerModel,
		Parts: []*models.Part{{Text: text}},
	}}}
}

type fakeStore struct {
	workOrders     map[string]*models.WorkOrder
	history        []models.MaintenanceHistory
	windows        []models.MaintenanceWindow
	inventory      []models.InventoryItem
	suppliers      []models.Supplier
	savedSchedules []*models.MaintenanceSchedule
	savedOrders    []*models.PartsOrder
	statusUpdates  map[string]string
	machineChats   map[string][]models.ChatMessage
	woChats        map[string][]models.ChatMessage
	historyCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workOrders:    map[string]*models.WorkOrder{},
		statusUpdates: map[string]string{},
		machineChats:  map[string][]models.ChatMessage{},
		woChats:       map[string][]models.ChatMessage{},
	}
}

func (f *fakeStore) GetWorkOrder(_ context.Context, id string) (*models.WorkOrder, error) {
	wo, ok := f.workOrders[id]
	if !ok {
		return nil, errors.New("work order " + id + ": not found")
	}
	return wo, nil
}

func (f *fakeStore) UpdateWorkOrderStatus(_ context.Context, id, status string) error {
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeStore) GetMaintenanceHistory(_ context.Context, _ string) ([]models.MaintenanceHistory, error) {
	f.historyCalls++
	return f.history, nil
}

func (f *fakeStore) GetAvailableMaintenanceWindows(_ context.Context, _ int) ([]models.MaintenanceWindow, error) {
	return f.windows, nil
}

func (f *fakeStore) SaveMaintenanceSchedule(_ context.Context, s *models.MaintenanceSchedule) error {
	f.savedSchedules = append(f.savedSchedules, s)
	return nil
}

func (f *fakeStore) GetInventoryItems(_ context.Context, _ []string) ([]models.InventoryItem, error) {
	return f.inventory, nil
}

func (f *fakeStore) GetSuppliersForParts(_ context.Context, _ []string) ([]models.Supplier, error) {
	return f.suppliers, nil
}

func (f *fakeStore) SavePartsOrder(_ context.Context, o *models.PartsOrder) error {
	f.savedOrders = append(f.savedOrders, o)
	return nil
}

func (f *fakeStore) GetMachineChatHistory(_ context.Context, id string) ([]models.ChatMessage, error) {
	return f.machineChats[id], nil
}

func (f *fakeStore) SaveMachineChatHistory(_ context.Context, id string, m []models.ChatMessage) error {
	f.machineChats[id] = m
	return nil
}

func (f *fakeStore) GetWorkOrderChatHistory(_ context.Context, id string) ([]models.ChatMessage, error) {
	return f.woChats[id], nil
}

func (f *fakeStore) SaveWorkOrderChatHistory(_ context.Context, id string, m []models.ChatMessage) error {
	f.woChats[id] = m
	return nil
}

func userTurn(text string) []models.Content {
	return []models.Content{{
		Role:  models.SpeakerUser,
		Parts: []*models.Part{{Text: text}},
	}}
}

func TestExtractWorkOrderID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Repair plan created for WO-2024-9f3a, technician assigned.", "wo-2024-9f3a"},
		{"work order wo-2023-0abc needs scheduling", "wo-2023-0abc"},
		{"no reference here", DefaultWorkOrderID},
		{"", DefaultWorkOrderID},
	}
	for _, c := range cases {
		if got := ExtractWorkOrderID(c.in); got != c.want {
			t.Errorf("ExtractWorkOrderID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	fenced := "Here is the plan:\n```json\n{\"riskScore\": 80}\n```\nDone."
	if got, ok := ExtractJSON(fenced); !ok || got != `{"riskScore": 80}` {
		t.Errorf("fenced extraction = %q, ok=%v", got, ok)
	}

	bare := "prefix {\"a\": {\"b\": 1}} suffix"
	if got, ok := ExtractJSON(bare); !ok || got != `{"a": {"b": 1}}` {
		t.Errorf("bare extraction = %q, ok=%v", got, ok)
	}

	if _, ok := ExtractJSON("no json at all"); ok {
		t.Error("expected no JSON to be found")
	}
}

func TestMeanTimeBetweenFailures(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	history := []models.MaintenanceHistory{
		{OccurrenceDate: base},
		{OccurrenceDate: base.AddDate(0, 0, -10)},
		{OccurrenceDate: base.AddDate(0, 0, -30)},
	}
	mtbf, ok := meanTimeBetweenFailures(history)
	if !ok {
		t.Fatal("expected an estimate")
	}
	if mtbf < 14.9 || mtbf > 15.1 {
		t.Errorf("mtbf = %.2f, want 15", mtbf)
	}

	if _, ok := meanTimeBetweenFailures(history[:1]); ok {
		t.Error("single record should give no estimate")
	}
}

func testWorkOrder() *models.WorkOrder {
	return &models.WorkOrder{
		ID:        "wo-2024-9f3a",
		MachineID: "machine-042",
		FaultType: "BearingWear",
		Priority:  "High",
		RequiredParts: []models.RequiredPart{
			{PartNumber: "BRG-6205", PartName: "Bearing 6205", Quantity: 2, IsAvailable: false},
			{PartNumber: "SEAL-22", PartName: "Shaft Seal", Quantity: 1, IsAvailable: true},
		},
		EstimatedDuration: 120,
		Status:            models.WorkOrderCreated,
	}
}

func TestSchedulerAgentCreatesSchedule(t *testing.T) {
	store := newFakeStore()
	store.workOrders["wo-2024-9f3a"] = testWorkOrder()
	store.windows = []models.MaintenanceWindow{{
		ID:               "mw-2026-09-03-night",
		StartTime:        time.Date(2026, 9, 3, 22, 0, 0, 0, time.UTC),
		EndTime:          time.Date(2026, 9, 4, 6, 0, 0, 0, time.UTC),
		IsAvailable:      true,
		ProductionImpact: "Low",
	}}

	client := &scriptedLLM{replies: []*models.GenerateContentResponse{textReply(
		"```json\n{\"scheduledDate\": \"2026-09-03T22:00:00Z\", \"maintenanceWindowId\": \"mw-2026-09-03-night\", " +
			"\"riskScore\": 78, \"predictedFailureProbability\": 45, " +
			"\"recommendedAction\": \"Replace spindle bearing\", \"reasoning\": \"Failure interval is shrinking.\"}\n```")}}

	a := NewSchedulerAgent(client, store)
	res, err := a.Invoke(context.Background(), userTurn("Schedule maintenance for wo-2024-9f3a"))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if len(store.savedSchedules) != 1 {
		t.Fatalf("saved %d schedules, want 1", len(store.savedSchedules))
	}
	s := store.savedSchedules[0]
	if !strings.HasPrefix(s.ID, "sched-") {
		t.Errorf("schedule id = %q, want sched- prefix", s.ID)
	}
	if s.MaintenanceWindow == nil || s.MaintenanceWindow.ID != "mw-2026-09-03-night" {
		t.Errorf("window not resolved: %+v", s.MaintenanceWindow)
	}
	if s.RiskScore != 78 {
		t.Errorf("risk score = %v, want 78", s.RiskScore)
	}
	if store.statusUpdates["wo-2024-9f3a"] != models.WorkOrderScheduled {
		t.Errorf("work order status = %q, want %q", store.statusUpdates["wo-2024-9f3a"], models.WorkOrderScheduled)
	}

	texts := res.Texts()
	reply := texts[len(texts)-1]
	for _, want := range []string{"Maintenance Schedule Created:", "- Schedule ID: sched-", "- Machine: machine-042", "- Risk Score: 78/100", "- Failure Probability: 45%"} {
		if !strings.Contains(reply, want) {
			t.Errorf("reply missing %q:\n%s", want, reply)
		}
	}

	if len(store.machineChats["machine-042"]) != 2 {
		t.Errorf("chat history has %d messages, want 2", len(store.machineChats["machine-042"]))
	}
}

func TestSchedulerAgentAnswersToolCalls(t *testing.T) {
	store := newFakeStore()
	store.workOrders[DefaultWorkOrderID] = &models.WorkOrder{ID: DefaultWorkOrderID, MachineID: "machine-007"}
	store.history = []models.MaintenanceHistory{{ID: "mh-1", MachineID: "machine-007"}}

	toolCall := &models.GenerateContentResponse{Content: []models.Content{{
		Role: models.SpeakerModel,
		Parts: []*models.Part{{FunctionCall: &models.FunctionCall{
			ID:   "call_1",
			Name: "get_maintenance_history",
			Args: map[string]any{"machineId": "machine-007"},
		}}},
	}}}
	final := textReply("{\"scheduledDate\": \"2026-09-10\", \"riskScore\": 30, \"predictedFailureProbability\": 10, \"recommendedAction\": \"Inspect\", \"reasoning\": \"Low risk.\"}")

	client := &scriptedLLM{replies: []*models.GenerateContentResponse{toolCall, final}}
	a := NewSchedulerAgent(client, store)

	res, err := a.Invoke(context.Background(), userTurn("schedule maintenance"))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("llm called %d times, want 2", len(client.requests))
	}
	// 初始历史查询一次，工具调用再查一次。
	if store.historyCalls != 2 {
		t.Errorf("history queried %d times, want 2", store.historyCalls)
	}

	second := client.requests[1].Content
	last := second[len(second)-1]
	if last.Role != models.SpeakerTool || last.Parts[0].FunctionResponse == nil {
		t.Fatalf("second request does not end with a tool turn: %+v", last)
	}
	if got := last.Parts[0].FunctionResponse.ID; got != "call_1" {
		t.Errorf("tool response id = %q, want call_1", got)
	}

	var sawCall bool
	for _, turn := range res.Turns {
		if turn.HasFunctionCall() {
			sawCall = true
		}
	}
	if !sawCall {
		t.Error("result turns do not include the function call")
	}
}

func TestSchedulerAgentRejectsNonJSONReply(t *testing.T) {
	store := newFakeStore()
	store.workOrders[DefaultWorkOrderID] = &models.WorkOrder{ID: DefaultWorkOrderID, MachineID: "machine-007"}
	client := &scriptedLLM{replies: []*models.GenerateContentResponse{textReply("I cannot help with that.")}}

	a := NewSchedulerAgent(client, store)
	if _, err := a.Invoke(context.Background(), userTurn("schedule maintenance")); err == nil {
		t.Fatal("expected an error for a reply without JSON")
	}
	if len(store.savedSchedules) != 0 {
		t.Error("no schedule should be saved on parse failure")
	}
}

func TestPartsAgentAllPartsAvailable(t *testing.T) {
	store := newFakeStore()
	wo := testWorkOrder()
	for i := range wo.RequiredParts {
		wo.RequiredParts[i].IsAvailable = true
	}
	store.workOrders[wo.ID] = wo

	client := &scriptedLLM{}
	a := NewPartsAgent(client, store)
	res, err := a.Invoke(context.Background(), userTurn("Maintenance scheduled for wo-2024-9f3a"))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	texts := res.Texts()
	if texts[len(texts)-1] != AllPartsAvailableReply {
		t.Errorf("reply = %q", texts[len(texts)-1])
	}
	if store.statusUpdates[wo.ID] != models.WorkOrderReady {
		t.Errorf("status = %q, want %q", store.statusUpdates[wo.ID], models.WorkOrderReady)
	}
	if len(client.requests) != 0 {
		t.Error("model should not be called when nothing needs ordering")
	}
}

func TestPartsAgentGeneratesOrder(t *testing.T) {
	store := newFakeStore()
	wo := testWorkOrder()
	store.workOrders[wo.ID] = wo
	store.suppliers = []models.Supplier{{
		ID: "supplier-001", Name: "Industrial Parts Supply Co.", Reliability: "High", LeadTimeDays: 3,
	}}
	store.inventory = []models.InventoryItem{{
		ID: "inv-1", PartNumber: "BRG-6205", PartName: "Bearing 6205", CurrentStock: 0, ReorderPoint: 4,
	}}

	client := &scriptedLLM{replies: []*models.GenerateContentResponse{textReply(
		"```json\n{\"supplierId\": \"supplier-001\", \"supplierName\": \"Industrial Parts Supply Co.\", " +
			"\"orderItems\": [{\"partNumber\": \"BRG-6205\", \"partName\": \"Bearing 6205\", \"quantity\": 2, \"unitCost\": 45.5, \"totalCost\": 91}], " +
			"\"totalCost\": 91, \"expectedDeliveryDate\": \"2026-09-03\", \"reasoning\": \"Reliable supplier.\"}\n```")}}

	a := NewPartsAgent(client, store)
	res, err := a.Invoke(context.Background(), userTurn("Maintenance scheduled for wo-2024-9f3a"))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if len(store.savedOrders) != 1 {
		t.Fatalf("saved %d orders, want 1", len(store.savedOrders))
	}
	o := store.savedOrders[0]
	if !strings.HasPrefix(o.ID, "PO-") || len(o.ID) != len("PO-")+8 {
		t.Errorf("order id = %q, want PO-<8 chars>", o.ID)
	}
	if o.OrderStatus != "Pending" {
		t.Errorf("order status = %q, want Pending", o.OrderStatus)
	}
	if o.SupplierID != "supplier-001" {
		t.Errorf("supplier = %q", o.SupplierID)
	}
	if store.statusUpdates[wo.ID] != models.WorkOrderPartsOrdered {
		t.Errorf("status = %q, want %q", store.statusUpdates[wo.ID], models.WorkOrderPartsOrdered)
	}

	texts := res.Texts()
	reply := texts[len(texts)-1]
	for _, want := range []string{"Parts Order Generated:", "- Order ID: PO-", "- Work Order: wo-2024-9f3a", "- Supplier: Industrial Parts Supply Co.", "- Total Cost: $91.00", "- Items: 1 part(s)"} {
		if !strings.Contains(reply, want) {
			t.Errorf("reply missing %q:\n%s", want, reply)
		}
	}
	if len(store.woChats[wo.ID]) != 2 {
		t.Errorf("chat history has %d messages, want 2", len(store.woChats[wo.ID]))
	}
}

func TestPartsAgentNoSuppliers(t *testing.T) {
	store := newFakeStore()
	store.workOrders["wo-2024-9f3a"] = testWorkOrder()

	a := NewPartsAgent(&scriptedLLM{}, store)
	_, err := a.Invoke(context.Background(), userTurn("order parts for wo-2024-9f3a"))
	if !errors.Is(err, ErrNoSuppliers) {
		t.Fatalf("err = %v, want ErrNoSuppliers", err)
	}
	if len(store.savedOrders) != 0 {
		t.Error("no order should be saved without suppliers")
	}
}

func TestAppendHistoryTrimsToTen(t *testing.T) {
	var messages []models.ChatMessage
	for i := 0; i < 6; i++ {
		messages = appendHistory(messages, "question", "answer")
	}
	if len(messages) != 10 {
		t.Fatalf("history length = %d, want 10", len(messages))
	}
	if messages[len(messages)-1].Role != "assistant" {
		t.Errorf("last message role = %q, want assistant", messages[len(messages)-1].Role)
	}
}
