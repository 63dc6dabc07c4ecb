package mocks

import (
	"context"

	"chat-push/internal/interfaces"
	"chat-push/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock TokenRegistry
type TokenRegistry struct {
	mock.Mock
}

func (m *TokenRegistry) RegisterToken(ctx context.Context, userID, token string, env models.Environment, deviceInfo *string) (uuid.UUID, error) {
	args := m.Called(ctx, userID, token, env, deviceInfo)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}
func (m *TokenRegistry) DeactivateToken(ctx context.Context, token string, userID *string) error {
	args := m.Called(ctx, token, userID)
	return args.Error(0)
}
func (m *TokenRegistry) ActiveTokensForUser(ctx context.Context, userID string) ([]models.DeviceRegistration, error) {
	args := m.Called(ctx, userID)
	regs, _ := args.Get(0).([]models.DeviceRegistration)
	return regs, args.Error(1)
}
func (m *TokenRegistry) ActiveTokensForUsers(ctx context.Context, userIDs []string) ([]models.DeviceRegistration, error) {
	args := m.Called(ctx, userIDs)
	regs, _ := args.Get(0).([]models.DeviceRegistration)
	return regs, args.Error(1)
}

var _ interfaces.TokenRegistry = (*TokenRegistry)(nil)
