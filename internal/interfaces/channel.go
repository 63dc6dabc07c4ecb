package interfaces

import (
	"context"

	"chat-push/internal/models"
)

// ChannelMembership перечисляет участников канала.
type ChannelMembership interface {
	MembersOf(ctx context.Context, channelID string) ([]models.ChannelMember, error)
}

// MessageReader дает воркеру актуальное состояние сообщения, канала и автора.
type MessageReader interface {
	// GetMessage возвращает ErrNotFound, если сообщение удалено до обработки.
	GetMessage(ctx context.Context, messageID string) (*models.StoredMessage, error)
	GetChannel(ctx context.Context, channelID string) (*models.ChannelInfo, error)
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}
