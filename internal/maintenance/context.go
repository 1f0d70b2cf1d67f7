package maintenance

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"FactorySense/internal/models"
)

// DefaultWorkOrderID is used when the upstream repair planner output does
// not contain a parseable work order reference.
const DefaultWorkOrderID = "wo-2024-468"

var workOrderIDPattern = regexp.MustCompile(`(?i)wo-\d{4}-[a-f0-9]+`)

// ExtractWorkOrderID pulls the first work order reference out of free
// text, falling back to DefaultWorkOrderID.
func ExtractWorkOrderID(text string) string {
	if m := workOrderIDPattern.FindString(text); m != "" {
		return strings.ToLower(m)
	}
	return DefaultWorkOrderID
}

var jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ExtractJSON returns the JSON payload embedded in a model reply. It
// prefers a ```json fenced block and otherwise takes the substring from
// the first '{' to the last '}'.
func ExtractJSON(text string) (string, bool) {
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], true
	}
	return "", false
}

const schedulerInstructions = `You are a predictive maintenance expert specializing in industrial tire manufacturing equipment.
Analyze the work order, the machine's maintenance history, and the available maintenance windows, then:
1. Estimate a risk score (0-100) for the machine based on failure frequency, downtime, and fault severity.
2. Estimate the probability (0-100) that the machine fails before the proposed maintenance date.
3. Pick the best maintenance window, balancing urgency against production impact.
4. Recommend a concrete maintenance action.

Respond with a JSON object inside a ` + "```json" + ` code block with exactly these fields:
{
  "scheduledDate": "<ISO 8601 date-time>",
  "maintenanceWindowId": "<id of the chosen window>",
  "riskScore": <number 0-100>,
  "predictedFailureProbability": <number 0-100>,
  "recommendedAction": "<short action description>",
  "reasoning": "<one paragraph explaining the decision>"
}`

// buildSchedulerContext assembles the analysis context for the model:
// work order facts, failure statistics derived from the history, and the
// candidate windows.
func buildSchedulerContext(wo *models.WorkOrder, history []models.MaintenanceHistory, windows []models.MaintenanceWindow) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Work Order: %s\n", wo.ID)
	fmt.Fprintf(&b, "Machine: %s\n", wo.MachineID)
	fmt.Fprintf(&b, "Fault Type: %s\n", wo.FaultType)
	fmt.Fprintf(&b, "Priority: %s\n", wo.Priority)
	fmt.Fprintf(&b, "Estimated Duration: %d minutes\n", wo.EstimatedDuration)

	b.WriteString("\nMaintenance History (most recent first):\n")
	if len(history) == 0 {
		b.WriteString("- no prior maintenance records\n")
	}
	for i, h := range history {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- %s: %s, downtime %d min, cost $%.2f\n",
			h.OccurrenceDate.Format("2006-01-02"), h.FaultType, h.Downtime, h.Cost)
	}

	if mtbf, ok := meanTimeBetweenFailures(history); ok {
		fmt.Fprintf(&b, "\nMean time between failures: %.1f days\n", mtbf)
	}
	if len(history) > 0 {
		days := time.Since(history[0].OccurrenceDate).Hours() / 24
		fmt.Fprintf(&b, "Days since last failure: %.0f\n", days)
	}

	b.WriteString("\nAvailable Maintenance Windows:\n")
	for _, w := range windows {
		fmt.Fprintf(&b, "- %s: %s to %s (production impact: %s)\n",
			w.ID,
			w.StartTime.Format(time.RFC3339),
			w.EndTime.Format(time.RFC3339),
			w.ProductionImpact)
	}
	return b.String()
}

// meanTimeBetweenFailures averages the gaps between consecutive failure
// dates. History is expected newest-first; fewer than two records give
// no meaningful estimate.
func meanTimeBetweenFailures(history []models.MaintenanceHistory) (float64, bool) {
	if len(history) < 2 {
		return 0, false
	}
	var totalDays float64
	for i := 0; i < len(history)-1; i++ {
		gap := history[i].OccurrenceDate.Sub(history[i+1].OccurrenceDate)
		totalDays += gap.Hours() / 24
	}
	return totalDays / float64(len(history)-1), true
}

const partsInstructions = `You are a parts ordering specialist for an industrial tire manufacturing plant.
Given the parts that are out of stock for a work order and the candidate suppliers, decide which supplier
to order from, weighing reliability against lead time and the work order priority.

Respond with a JSON object inside a ` + "```json" + ` code block with exactly these fields:
{
  "supplierId": "<id of the chosen supplier>",
  "supplierName": "<name of the chosen supplier>",
  "orderItems": [
    {"partNumber": "<part number>", "partName": "<part name>", "quantity": <number>, "unitCost": <number>, "totalCost": <number>}
  ],
  "totalCost": <number>,
  "expectedDeliveryDate": "<ISO 8601 date-time>",
  "reasoning": "<one paragraph explaining the supplier choice>"
}`

// buildPartsContext assembles the ordering context: the missing parts,
// current stock levels, and the supplier candidates.
func buildPartsContext(wo *models.WorkOrder, missing []models.RequiredPart, inventory []models.InventoryItem, suppliers []models.Supplier) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Work Order: %s (machine %s, priority %s)\n", wo.ID, wo.MachineID, wo.Priority)

	b.WriteString("\nParts To Order:\n")
	for _, p := range missing {
		fmt.Fprintf(&b, "- %s (%s) x%d\n", p.PartName, p.PartNumber, p.Quantity)
	}

	if len(inventory) > 0 {
		b.WriteString("\nCurrent Inventory:\n")
		for _, item := range inventory {
			fmt.Fprintf(&b, "- %s (%s): stock %d, reorder point %d, location %s\n",
				item.PartName, item.PartNumber, item.CurrentStock, item.ReorderPoint, item.Location)
		}
	}

	b.WriteString("\nCandidate Suppliers:\n")
	for _, s := range suppliers {
		fmt.Fprintf(&b, "- %s (%s): reliability %s, lead time %d day(s)\n",
			s.Name, s.ID, s.Reliability, s.LeadTimeDays)
	}
	return b.String()
}

// recentMessages returns at most n of the newest messages.
func recentMessages(messages []models.ChatMessage, n int) []models.ChatMessage {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

// appendHistory appends an exchange and trims the history to the last
// ten messages before it is persisted.
func appendHistory(messages []models.ChatMessage, userText, assistantText string) []models.ChatMessage {
	messages = append(messages,
		models.ChatMessage{Role: "user", Content: userText},
		models.ChatMessage{Role: "assistant", Content: assistantText})
	return recentMessages(messages, 10)
}
