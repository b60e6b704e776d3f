package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of Runner using testify/mock.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunModel(ctx context.Context, prompt, model string) (string, error) {
	args := m.Called(ctx, prompt, model)
	return args.String(0), args.Error(1)
}
