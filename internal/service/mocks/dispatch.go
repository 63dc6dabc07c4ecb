package mocks

import (
	"context"

	"chat-push/internal/models"
	"chat-push/internal/service"

	"github.com/stretchr/testify/mock"
)

// Mock DispatchEngine
type DispatchEngine struct {
	mock.Mock
}

func (m *DispatchEngine) Initialize(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
func (m *DispatchEngine) IsInitialized() bool {
	args := m.Called()
	return args.Bool(0)
}
func (m *DispatchEngine) ProjectID() string {
	args := m.Called()
	return args.String(0)
}
func (m *DispatchEngine) SendToTokens(ctx context.Context, tokens []string, title, body string, opts models.SendOptions) models.DispatchResult {
	args := m.Called(ctx, tokens, title, body, opts)
	result, _ := args.Get(0).(models.DispatchResult)
	return result
}
func (m *DispatchEngine) SendToUser(ctx context.Context, userID, title, body string, opts models.SendOptions) (models.DispatchResult, error) {
	args := m.Called(ctx, userID, title, body, opts)
	result, _ := args.Get(0).(models.DispatchResult)
	return result, args.Error(1)
}
func (m *DispatchEngine) SendToUsers(ctx context.Context, userIDs []string, title, body string, opts models.SendOptions) (models.DispatchResult, error) {
	args := m.Called(ctx, userIDs, title, body, opts)
	result, _ := args.Get(0).(models.DispatchResult)
	return result, args.Error(1)
}
func (m *DispatchEngine) SendToChannel(ctx context.Context, channelID, excludeUser, title, body string, opts models.SendOptions) (models.DispatchResult, error) {
	args := m.Called(ctx, channelID, excludeUser, title, body, opts)
	result, _ := args.Get(0).(models.DispatchResult)
	return result, args.Error(1)
}
func (m *DispatchEngine) Send(ctx context.Context, req models.NotificationRequest) (models.DispatchResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(models.DispatchResult)
	return result, args.Error(1)
}

// Mock FailureClassifier
type FailureClassifier struct {
	mock.Mock
}

func (m *FailureClassifier) Classify(ctx context.Context, outcomes []models.TokenOutcome, owners map[string]string) service.ClassificationReport {
	args := m.Called(ctx, outcomes, owners)
	report, _ := args.Get(0).(service.ClassificationReport)
	return report
}

var (
	_ service.DispatchEngine    = (*DispatchEngine)(nil)
	_ service.FailureClassifier = (*FailureClassifier)(nil)
)
