package maintenance

import (
	"context"
	"errors"

	"FactorySense/internal/a2a"
	"FactorySense/internal/agent"
	"FactorySense/internal/models"
)

// NewA2AHandler adapts a local agent into an A2A message handler.
// Agent errors come back as reply text so the upstream chain keeps
// moving instead of failing the RPC.
func NewA2AHandler(a agent.Agent) func(ctx context.Context, msg a2a.Message) (string, error) {
	return func(ctx context.Context, msg a2a.Message) (string, error) {
		res, err := a.Invoke(ctx, []models.Content{{
			Role:  models.SpeakerUser,
			Parts: []*models.Part{{Text: msg.Text()}},
		}})
		if err != nil {
			if errors.Is(err, ErrNoSuppliers) {
				return "Error: " + err.Error(), nil
			}
			return "Error " + err.Error(), nil
		}
		texts := res.Texts()
		if len(texts) == 0 {
			return "", nil
		}
		return texts[len(texts)-1], nil
	}
}
