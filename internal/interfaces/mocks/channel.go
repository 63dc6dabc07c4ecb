package mocks

import (
	"context"

	"chat-push/internal/interfaces"
	"chat-push/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock ChannelMembership
type ChannelMembership struct {
	mock.Mock
}

func (m *ChannelMembership) MembersOf(ctx context.Context, channelID string) ([]models.ChannelMember, error) {
	args := m.Called(ctx, channelID)
	members, _ := args.Get(0).([]models.ChannelMember)
	return members, args.Error(1)
}

// Mock MessageReader
type MessageReader struct {
	mock.Mock
}

func (m *MessageReader) GetMessage(ctx context.Context, messageID string) (*models.StoredMessage, error) {
	args := m.Called(ctx, messageID)
	msg, _ := args.Get(0).(*models.StoredMessage)
	return msg, args.Error(1)
}
func (m *MessageReader) GetChannel(ctx context.Context, channelID string) (*models.ChannelInfo, error) {
	args := m.Called(ctx, channelID)
	ch, _ := args.Get(0).(*models.ChannelInfo)
	return ch, args.Error(1)
}
func (m *MessageReader) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

var (
	_ interfaces.ChannelMembership = (*ChannelMembership)(nil)
	_ interfaces.MessageReader     = (*MessageReader)(nil)
)
