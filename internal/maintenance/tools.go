package maintenance

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"FactorySense/internal/llm"
	"FactorySense/internal/models"
)

// maxToolIterations bounds the model/tool round trips per request.
const maxToolIterations = 4

// SchedulerTools declares the tools offered to the scheduling model. The
// analysis context already carries the essentials, these let the model
// pull more data on demand.
func SchedulerTools() []*mcp.Tool {
	history := mcp.NewTool("get_maintenance_history",
		mcp.WithDescription("Fetch the full maintenance history for a machine, newest first."),
		mcp.WithString("machineId", mcp.Required(), mcp.Description("Machine identifier, e.g. machine-042.")),
	)
	windows := mcp.NewTool("get_available_maintenance_windows",
		mcp.WithDescription("List available maintenance windows over the coming days."),
		mcp.WithNumber("days", mcp.Description("How many days ahead to look. Defaults to 14.")),
	)
	return []*mcp.Tool{&history, &windows}
}

// PartsTools declares the tools offered to the ordering model.
func PartsTools() []*mcp.Tool {
	inventory := mcp.NewTool("get_inventory_items",
		mcp.WithDescription("Look up current stock levels for a list of part numbers."),
		mcp.WithArray("partNumbers", mcp.Required(), mcp.Description("Part numbers to look up.")),
	)
	return []*mcp.Tool{&inventory}
}

// recordLookup renders a store lookup the agent performed itself as a
// function-call turn plus its tool-result turn, so the workflow trace
// shows local data access the same way it shows model-requested tools.
func recordLookup(seq int, name string, args, response map[string]any) []models.Content {
	callID := fmt.Sprintf("lookup-%d", seq)
	return []models.Content{
		{
			Role: models.SpeakerModel,
			Parts: []*models.Part{{FunctionCall: &models.FunctionCall{
				ID:   callID,
				Name: name,
				Args: args,
			}}},
		},
		{
			Role: models.SpeakerTool,
			Parts: []*models.Part{{FunctionResponse: &models.FunctionResponse{
				ID:       callID,
				Name:     name,
				Response: response,
			}}},
		},
	}
}

// toolExec resolves a single function call into a response payload. It
// never fails; errors are reported to the model inside the payload.
type toolExec func(ctx context.Context, call *models.FunctionCall) map[string]any

// runToolLoop drives the model until it stops requesting tools, feeding
// each function call's result back as a tool turn. It returns the last
// text the model produced along with every turn generated on the way,
// so callers can surface the tool activity in their own output.
func runToolLoop(ctx context.Context, client llm.LLM, conversation []models.Content, exec toolExec) (string, []models.Content, error) {
	var produced []models.Content
	var latestText string
	for i := 0; i < maxToolIterations; i++ {
		resp, err := client.GenerateContent(ctx, &models.GenerateContentRequest{Content: conversation})
		if err != nil {
			return "", produced, err
		}

		var calls []*models.FunctionCall
		for _, turn := range resp.Content {
			produced = append(produced, turn)
			conversation = append(conversation, turn)
			for _, p := range turn.Parts {
				if p == nil {
					continue
				}
				if p.Text != "" {
					latestText = p.Text
				}
				if p.FunctionCall != nil {
					calls = append(calls, p.FunctionCall)
				}
			}
		}
		if len(calls) == 0 {
			return latestText, produced, nil
		}

		toolTurn := models.Content{Role: models.SpeakerTool}
		for _, call := range calls {
			toolTurn.Parts = append(toolTurn.Parts, &models.Part{
				FunctionResponse: &models.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: exec(ctx, call),
				},
			})
		}
		produced = append(produced, toolTurn)
		conversation = append(conversation, toolTurn)
	}
	return "", produced, fmt.Errorf("model did not settle within %d tool iterations", maxToolIterations)
}
