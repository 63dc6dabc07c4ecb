package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType - тип сообщения чата.
type MessageType string

const (
	MessageTypeText      MessageType = "Text"
	MessageTypeFile      MessageType = "File"
	MessageTypeImage     MessageType = "Image"
	MessageTypePoll      MessageType = "Poll"
	MessageTypeSystem    MessageType = "System"
	MessageTypeGroupCall MessageType = "GroupCall"
)

// ProcessContext - флаги процесса, в котором создано сообщение.
// Массовые/неинтерактивные контексты не должны порождать шторм уведомлений.
type ProcessContext struct {
	InTest    bool `json:"in_test"`
	InInstall bool `json:"in_install"`
	InPatch   bool `json:"in_patch"`
	InImport  bool `json:"in_import"`
}

// Bulk сообщает, что сообщение создано в массовом контексте.
func (c ProcessContext) Bulk() bool {
	return c.InTest || c.InInstall || c.InPatch || c.InImport
}

// MessageEvent - входящее событие "сообщение создано" от подсистемы сообщений.
type MessageEvent struct {
	MessageID       string         `json:"message_id"`
	ChannelID       string         `json:"channel_id"`
	MessageType     MessageType    `json:"message_type"`
	SendSilently    bool           `json:"send_silently"`
	Owner           string         `json:"owner"`
	IsSelfMessage   bool           `json:"is_self_message"`
	IsDirectMessage bool           `json:"is_direct_message"`
	Context         ProcessContext `json:"context"`
}

// DispatchJob - единица асинхронной работы. Ссылается только на ID сообщения,
// воркер перечитывает состояние сообщения и канала при обработке.
type DispatchJob struct {
	MessageID  string    `json:"message_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt"`
	RequestID  string    `json:"request_id,omitempty"`
}

// NewDispatchJob создает задание с текущим временем постановки.
func NewDispatchJob(messageID string) DispatchJob {
	return DispatchJob{
		MessageID:  messageID,
		EnqueuedAt: time.Now().UTC(),
		Attempt:    1,
		RequestID:  uuid.NewString(),
	}
}

// ChannelMember - участник канала с его настройкой уведомлений.
type ChannelMember struct {
	UserID               string `json:"user_id" db:"user_id"`
	NotificationsEnabled bool   `json:"allow_notifications" db:"allow_notifications"`
	IsBot                bool   `json:"is_bot" db:"is_bot"`
}

// StoredMessage - сообщение в том виде, в котором его перечитывает воркер.
type StoredMessage struct {
	ID           string      `db:"id"`
	ChannelID    string      `db:"channel_id"`
	Owner        string      `db:"owner"`
	MessageType  MessageType `db:"message_type"`
	Content      string      `db:"content"`
	File         string      `db:"file"`
	SendSilently bool        `db:"send_silently"`
	CreatedAt    time.Time   `db:"created_at"`
}

// ChannelInfo - атрибуты канала, нужные для заголовка и ссылки уведомления.
type ChannelInfo struct {
	ID              string `db:"id"`
	ChannelName     string `db:"channel_name"`
	Workspace       string `db:"workspace"`
	IsDirectMessage bool   `db:"is_direct_message"`
	IsSelfMessage   bool   `db:"is_self_message"`
	IsThread        bool   `db:"is_thread"`
	IsDMThread      bool   `db:"is_dm_thread"`
}

// UserProfile - отображаемые данные автора сообщения.
type UserProfile struct {
	UserID   string `db:"user_id"`
	FullName string `db:"full_name"`
	Image    string `db:"user_image"`
}

// DisplayName возвращает имя для заголовка уведомления.
func (p UserProfile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.UserID
}
