package engine

import (
	"context"

	"github.com/glitchymagic/cardpulse/internal/logging"
)

// LogConsumer is the default downstream consumer: it logs eligible
// narratives and their predictions. Real deployments replace it with a
// poster/alerter behind the same interface.
type LogConsumer struct{}

// Publish logs each insight at info level.
func (LogConsumer) Publish(_ context.Context, result CycleResult) error {
	for _, in := range result.Insights {
		logging.Info("insight",
			"entity", in.EntityID,
			"summary", in.Summary,
			"action", in.Action.Type,
			"prediction", in.Prediction.Direction,
			"confidence", in.Prediction.Confidence)
	}
	return nil
}
