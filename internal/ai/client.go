package ai

import (
	"context"
	"strings"

	"smart-email/internal/logger"
	"smart-email/internal/model"
)

// Client classifies one message. Implementations return an error when the
// backend fails or its output does not match the classification schema.
type Client interface {
	Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error)
}

// New returns the backend selected by opts.Provider.
func New(opts Options, logger *logger.Logger) Client {
	if strings.EqualFold(opts.Provider, ProviderHeuristic) {
		return NewHeuristicClient()
	}
	return NewAIClient(opts, logger)
}
