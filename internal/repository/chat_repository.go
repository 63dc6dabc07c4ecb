package repository

import (
	"context"
	"errors"
	"fmt"

	"chat-push/internal/interfaces"
	"chat-push/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	membersOfQuery = `
		SELECT m.user_id, m.allow_notifications, COALESCE(u.is_bot, FALSE) AS is_bot
		FROM chat_channel_members m
		LEFT JOIN chat_users u ON u.user_id = m.user_id
		WHERE m.channel_id = $1
		ORDER BY m.user_id;
	`
	getMessageQuery = `
		SELECT id, channel_id, owner, message_type, content, file, send_silently, created_at
		FROM chat_messages WHERE id = $1;
	`
	getChannelQuery = `
		SELECT id, channel_name, workspace, is_direct_message, is_self_message, is_thread, is_dm_thread
		FROM chat_channels WHERE id = $1;
	`
	getUserProfileQuery = `SELECT user_id, full_name, user_image FROM chat_users WHERE user_id = $1;`
)

var (
	_ interfaces.ChannelMembership = (*pgChatRepository)(nil)
	_ interfaces.MessageReader     = (*pgChatRepository)(nil)
)

// pgChatRepository читает проекцию чата: участников каналов, сообщения и профили.
type pgChatRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgChatRepository(db interfaces.DBTX, logger *zap.Logger) *pgChatRepository {
	return &pgChatRepository{
		db:     db,
		logger: logger.Named("ChatRepo"),
	}
}

func (r *pgChatRepository) MembersOf(ctx context.Context, channelID string) ([]models.ChannelMember, error) {
	members := make([]models.ChannelMember, 0)
	if err := pgxscan.Select(ctx, r.db, &members, membersOfQuery, channelID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return members, nil
		}
		r.logger.Error("Error listing channel members", zap.String("channelID", channelID), zap.Error(err))
		return nil, fmt.Errorf("failed to list members of channel %s: %w", channelID, err)
	}
	return members, nil
}

func (r *pgChatRepository) GetMessage(ctx context.Context, messageID string) (*models.StoredMessage, error) {
	var msg models.StoredMessage
	if err := r.get(ctx, &msg, getMessageQuery, messageID); err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return &msg, nil
}

func (r *pgChatRepository) GetChannel(ctx context.Context, channelID string) (*models.ChannelInfo, error) {
	var ch models.ChannelInfo
	if err := r.get(ctx, &ch, getChannelQuery, channelID); err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	return &ch, nil
}

func (r *pgChatRepository) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.get(ctx, &p, getUserProfileQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to get user profile %s: %w", userID, err)
	}
	return &p, nil
}

// get сканирует одну строку; pgx.ErrNoRows превращается в interfaces.ErrNotFound.
func (r *pgChatRepository) get(ctx context.Context, dst any, query string, arg string) error {
	err := pgxscan.Get(ctx, r.db, dst, query, arg)
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return interfaces.ErrNotFound
	}
	r.logger.Error("Error reading chat record", zap.String("id", arg), zap.Error(err))
	return err
}
