package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-push/internal/interfaces"
	"chat-push/internal/models"

	"go.uber.org/zap"
)

const newMessageType = "New message"

type messageNotifier struct {
	reader     interfaces.MessageReader
	membership interfaces.ChannelMembership
	engine     DispatchEngine
	baseURL    string
	logger     *zap.Logger
}

// NewMessageNotifier создает обработчик заданий воркера: перечитывает сообщение и рассылает уведомление.
func NewMessageNotifier(
	reader interfaces.MessageReader,
	membership interfaces.ChannelMembership,
	engine DispatchEngine,
	baseURL string,
	logger *zap.Logger,
) interfaces.MessageNotifier {
	return &messageNotifier{
		reader:     reader,
		membership: membership,
		engine:     engine,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.Named("message_notifier"),
	}
}

func (n *messageNotifier) NotifyMessage(ctx context.Context, messageID string) error {
	log := n.logger.With(zap.String("message_id", messageID))

	msg, err := n.reader.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			log.Debug("Сообщение удалено до обработки задания, уведомление не требуется")
			return nil
		}
		return fmt.Errorf("ошибка чтения сообщения %s: %w", messageID, err)
	}

	channel, err := n.reader.GetChannel(ctx, msg.ChannelID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			log.Debug("Канал сообщения не найден", zap.String("channel_id", msg.ChannelID))
			return nil
		}
		return fmt.Errorf("ошибка чтения канала %s: %w", msg.ChannelID, err)
	}

	// Состояние могло измениться с момента постановки в очередь
	if decision := Evaluate(storedEvent(*msg, *channel)); !decision.Accept {
		log.Debug("Сообщение отклонено при повторной проверке", zap.String("reason", decision.Reason))
		return nil
	}

	owner := n.ownerProfile(ctx, msg.Owner)

	var req *models.NotificationRequest
	if channel.IsDirectMessage {
		req, err = n.directMessageRequest(ctx, *msg, *channel, owner)
		if err != nil {
			return err
		}
		if req == nil {
			log.Debug("У личного сообщения нет получателя-человека")
			return nil
		}
	} else {
		req = n.channelMessageRequest(*msg, *channel, owner)
	}

	result, err := n.engine.Send(ctx, *req)
	if err != nil {
		return fmt.Errorf("ошибка отправки уведомления для сообщения %s: %w", messageID, err)
	}
	log.Info("Уведомление о сообщении обработано",
		zap.String("channel_id", msg.ChannelID),
		zap.Bool("direct_message", channel.IsDirectMessage),
		zap.Int("attempted", result.Attempted),
		zap.Int("success_count", result.SuccessCount),
		zap.String("skipped", string(result.Skipped)))
	return nil
}

func (n *messageNotifier) ownerProfile(ctx context.Context, userID string) models.UserProfile {
	profile, err := n.reader.GetUserProfile(ctx, userID)
	if err != nil || profile == nil {
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			n.logger.Warn("Не удалось получить профиль автора, используем ID", zap.String("user_id", userID), zap.Error(err))
		}
		return models.UserProfile{UserID: userID}
	}
	return *profile
}

// directMessageRequest возвращает nil, если собеседник отсутствует или является ботом.
func (n *messageNotifier) directMessageRequest(ctx context.Context, msg models.StoredMessage, channel models.ChannelInfo, owner models.UserProfile) (*models.NotificationRequest, error) {
	members, err := n.membership.MembersOf(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения участников личного канала %s: %w", channel.ID, err)
	}

	var peer *models.ChannelMember
	for i := range members {
		if members[i].UserID != msg.Owner {
			peer = &members[i]
			break
		}
	}
	if peer == nil || peer.IsBot {
		return nil, nil
	}

	data := n.baseData(msg, "DM")
	clickAction := n.baseURL + "/raven/channels/" + channel.ID + "/"

	return &models.NotificationRequest{
		Target: models.UserTarget(peer.UserID),
		Title:  owner.DisplayName(),
		Body:   notificationBody(msg),
		SendOptions: models.SendOptions{
			Data:        data,
			ClickAction: &clickAction,
			Image:       n.avatar(owner),
		},
	}, nil
}

func (n *messageNotifier) channelMessageRequest(msg models.StoredMessage, channel models.ChannelInfo, owner models.UserProfile) *models.NotificationRequest {
	title := fmt.Sprintf("%s in #%s", owner.DisplayName(), channel.ChannelName)
	if channel.IsThread {
		title = fmt.Sprintf("%s in thread", owner.DisplayName())
	}

	data := n.baseData(msg, "Channel")
	data["is_thread"] = channel.IsThread
	clickAction := n.channelURL(channel)

	return &models.NotificationRequest{
		Target: models.ChannelTarget(channel.ID, msg.Owner),
		Title:  title,
		Body:   notificationBody(msg),
		SendOptions: models.SendOptions{
			Data:        data,
			ClickAction: &clickAction,
			Image:       n.avatar(owner),
		},
	}
}

// channelURL - <base>/raven/<workspace|channels>/[thread/]<channel>/
func (n *messageNotifier) channelURL(channel models.ChannelInfo) string {
	var b strings.Builder
	b.WriteString(n.baseURL)
	b.WriteString("/raven/")
	if channel.Workspace != "" && !channel.IsDMThread {
		b.WriteString(channel.Workspace)
		b.WriteString("/")
	} else {
		b.WriteString("channels/")
	}
	if channel.IsThread {
		b.WriteString("thread/")
	}
	b.WriteString(channel.ID)
	b.WriteString("/")
	return b.String()
}

func (n *messageNotifier) baseData(msg models.StoredMessage, channelType string) map[string]any {
	return map[string]any{
		"message_id":         msg.ID,
		"channel_id":         msg.ChannelID,
		"raven_message_type": string(msg.MessageType),
		"channel_type":       channelType,
		"content":            dataContent(msg),
		"from_user":          msg.Owner,
		"type":               newMessageType,
		"creation":           msg.CreatedAt,
	}
}

func (n *messageNotifier) avatar(owner models.UserProfile) *string {
	if owner.Image == "" {
		return nil
	}
	url := absoluteURL(n.baseURL, owner.Image)
	return &url
}

func storedEvent(msg models.StoredMessage, channel models.ChannelInfo) models.MessageEvent {
	return models.MessageEvent{
		MessageID:       msg.ID,
		ChannelID:       msg.ChannelID,
		MessageType:     msg.MessageType,
		SendSilently:    msg.SendSilently,
		Owner:           msg.Owner,
		IsSelfMessage:   channel.IsSelfMessage,
		IsDirectMessage: channel.IsDirectMessage,
	}
}

var _ interfaces.MessageNotifier = (*messageNotifier)(nil)
