package ai

import (
	"context"

	"smart-email/internal/model"
)

// MockClient is a mock implementation of Client for testing
type MockClient struct {
	ClassifyFunc func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error)
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}

	// Default mock behavior: informational, low urgency
	return model.ClassificationResponse{
		Category: string(model.CategoryInfo),
		Urgency:  2,
		Summary:  req.Subject,
	}, nil
}
