package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"FactorySense/internal/agent"
	"FactorySense/internal/llm"
	"FactorySense/internal/models"
	"FactorySense/pkg/logger"
)

// PartsAgentName identifies the ordering agent in workflow output.
const PartsAgentName = "PartsOrderingAgent"

// AllPartsAvailableReply is returned when nothing needs ordering.
const AllPartsAvailableReply = "All required parts are available in stock. No parts order needed."

// ErrNoSuppliers is surfaced downstream as step failure text.
var ErrNoSuppliers = errors.New("No suppliers found for required parts.")

// PartsAgent closes the pipeline: for the work order referenced by the
// scheduler's output it checks which required parts are out of stock and,
// when needed, asks the model to pick a supplier and draft the order.
type PartsAgent struct {
	client llm.LLM
	store  Store
	log    *logger.Logger
	now    func() time.Time
	newID  func() string
}

var _ agent.Agent = (*PartsAgent)(nil)

func NewPartsAgent(client llm.LLM, store Store) *PartsAgent {
	return &PartsAgent{
		client: client,
		store:  store,
		log:    logger.New(PartsAgentName, "", ""),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (a *PartsAgent) Name() string { return PartsAgentName }

// orderDraft is the JSON shape the model is instructed to emit.
type orderDraft struct {
	SupplierID           string             `json:"supplierId"`
	SupplierName         string             `json:"supplierName"`
	OrderItems           []models.OrderItem `json:"orderItems"`
	TotalCost            float64            `json:"totalCost"`
	ExpectedDeliveryDate string             `json:"expectedDeliveryDate"`
	Reasoning            string             `json:"reasoning"`
}

func (a *PartsAgent) Invoke(ctx context.Context, conversation []models.Content) (*agent.InvokeResult, error) {
	input := lastText(conversation)
	workOrderID := ExtractWorkOrderID(input)
	log := a.log.WithAgent(PartsAgentName)

	wo, err := a.store.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("processing parts order request: %w", err)
	}

	missing := missingParts(wo.RequiredParts)
	if len(missing) == 0 {
		if err := a.store.UpdateWorkOrderStatus(ctx, wo.ID, models.WorkOrderReady); err != nil {
			return nil, fmt.Errorf("processing parts order request: %w", err)
		}
		log.WithPayload(map[string]any{"workOrderId": wo.ID}).Info("all parts in stock, work order ready")
		return textResult(AllPartsAvailableReply), nil
	}

	partNumbers := make([]string, 0, len(missing))
	for _, p := range missing {
		partNumbers = append(partNumbers, p.PartNumber)
	}

	inventory, err := a.store.GetInventoryItems(ctx, partNumbers)
	if err != nil {
		return nil, fmt.Errorf("processing parts order request: %w", err)
	}
	suppliers, err := a.store.GetSuppliersForParts(ctx, partNumbers)
	if err != nil {
		return nil, fmt.Errorf("processing parts order request: %w", err)
	}
	if len(suppliers) == 0 {
		return nil, ErrNoSuppliers
	}

	chat, err := a.store.GetWorkOrderChatHistory(ctx, wo.ID)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_error"}).Warn("chat history unavailable, continuing without it")
		chat = nil
	}

	// The upfront store reads are surfaced as tool-call turns so they
	// show up in the workflow trace.
	var turns []models.Content
	turns = append(turns, recordLookup(1, "get_work_order",
		map[string]any{"workOrderId": workOrderID}, map[string]any{"workOrder": wo})...)
	turns = append(turns, recordLookup(2, "get_inventory_items",
		map[string]any{"partNumbers": partNumbers}, map[string]any{"items": inventory})...)

	prompt := a.buildPrompt(wo, missing, inventory, suppliers, chat, input)
	seed := []models.Content{{
		Role:  models.SpeakerUser,
		Parts: []*models.Part{{Text: prompt}},
	}}

	replyText, loopTurns, err := runToolLoop(ctx, a.client, seed, a.executeTool)
	turns = append(turns, loopTurns...)
	if err != nil {
		return nil, fmt.Errorf("processing parts order request: %w", err)
	}

	draft, err := parseOrderDraft(replyText)
	if err != nil {
		return nil, fmt.Errorf("processing parts order request: %w", err)
	}

	order := a.buildOrder(wo, suppliers, draft)
	if err := a.store.SavePartsOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("processing parts order request: %w", err)
	}
	if err := a.store.UpdateWorkOrderStatus(ctx, wo.ID, models.WorkOrderPartsOrdered); err != nil {
		return nil, fmt.Errorf("processing parts order request: %w", err)
	}

	reply := formatOrderReply(order)
	if err := a.store.SaveWorkOrderChatHistory(ctx, wo.ID, appendHistory(chat, input, reply)); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_error"}).Warn("failed to persist chat history")
	}
	log.WithPayload(map[string]any{"orderId": order.ID, "workOrderId": wo.ID}).
		Info("parts order generated")

	turns = append(turns, models.Content{
		Role:  models.SpeakerAssistant,
		Parts: []*models.Part{{Text: reply}},
	})
	return &agent.InvokeResult{Turns: turns}, nil
}

func missingParts(parts []models.RequiredPart) []models.RequiredPart {
	var missing []models.RequiredPart
	for _, p := range parts {
		if !p.IsAvailable {
			missing = append(missing, p)
		}
	}
	return missing
}

func (a *PartsAgent) buildPrompt(wo *models.WorkOrder, missing []models.RequiredPart, inventory []models.InventoryItem, suppliers []models.Supplier, chat []models.ChatMessage, input string) string {
	var b strings.Builder
	b.WriteString(partsInstructions)
	b.WriteString("\n\n")
	b.WriteString(buildPartsContext(wo, missing, inventory, suppliers))
	if recent := recentMessages(chat, 5); len(recent) > 0 {
		b.WriteString("\nPrevious conversation about this work order:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	b.WriteString("\nUser request: ")
	b.WriteString(input)
	return b.String()
}

func (a *PartsAgent) executeTool(ctx context.Context, call *models.FunctionCall) map[string]any {
	switch call.Name {
	case "get_inventory_items":
		raw, _ := call.Args["partNumbers"].([]any)
		partNumbers := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				partNumbers = append(partNumbers, s)
			}
		}
		items, err := a.store.GetInventoryItems(ctx, partNumbers)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"items": items}
	default:
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", call.Name)}
	}
}

func parseOrderDraft(replyText string) (*orderDraft, error) {
	raw, ok := ExtractJSON(replyText)
	if !ok {
		return nil, fmt.Errorf("model reply contains no JSON: %q", replyText)
	}
	var d orderDraft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode order draft: %w", err)
	}
	return &d, nil
}

func (a *PartsAgent) buildOrder(wo *models.WorkOrder, suppliers []models.Supplier, d *orderDraft) *models.PartsOrder {
	supplierID := d.SupplierID
	supplierName := d.SupplierName
	leadTime := 3
	for _, s := range suppliers {
		if s.ID == supplierID || s.Name == supplierName {
			supplierID, supplierName, leadTime = s.ID, s.Name, s.LeadTimeDays
			break
		}
	}
	if supplierID == "" {
		supplierID, supplierName, leadTime = suppliers[0].ID, suppliers[0].Name, suppliers[0].LeadTimeDays
	}
	delivery := parseFlexibleTime(d.ExpectedDeliveryDate, a.now().AddDate(0, 0, leadTime))
	return &models.PartsOrder{
		ID:                   "PO-" + a.newID()[:8],
		WorkOrderID:          wo.ID,
		OrderItems:           d.OrderItems,
		SupplierID:           supplierID,
		SupplierName:         supplierName,
		TotalCost:            d.TotalCost,
		ExpectedDeliveryDate: delivery,
		OrderStatus:          "Pending",
		CreatedAt:            a.now().UTC(),
	}
}

func formatOrderReply(o *models.PartsOrder) string {
	return fmt.Sprintf(
		"Parts Order Generated:\n"+
			"- Order ID: %s\n"+
			"- Work Order: %s\n"+
			"- Supplier: %s\n"+
			"- Expected Delivery: %s\n"+
			"- Total Cost: $%.2f\n"+
			"- Items: %d part(s)",
		o.ID, o.WorkOrderID, o.SupplierName,
		o.ExpectedDeliveryDate.Format("2006-01-02"), o.TotalCost, len(o.OrderItems))
}

func textResult(text string) *agent.InvokeResult {
	return &agent.InvokeResult{Turns: []models.Content{{
		Role:  models.SpeakerAssistant,
		Parts: []*models.Part{{Text: text}},
	}}}
}
