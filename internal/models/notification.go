package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TargetKind определяет тип логической цели уведомления.
type TargetKind string

const (
	TargetUser    TargetKind = "user"
	TargetUsers   TargetKind = "users"
	TargetChannel TargetKind = "channel"
)

// Target - логическая цель: один пользователь, список пользователей или участники канала.
type Target struct {
	Kind        TargetKind `json:"kind"`
	UserID      string     `json:"user_id,omitempty"`
	UserIDs     []string   `json:"user_ids,omitempty"`
	ChannelID   string     `json:"channel_id,omitempty"`
	ExcludeUser string     `json:"exclude_user,omitempty"` // Обычно автор сообщения
}

func UserTarget(userID string) Target {
	return Target{Kind: TargetUser, UserID: userID}
}

func UsersTarget(userIDs []string) Target {
	return Target{Kind: TargetUsers, UserIDs: userIDs}
}

func ChannelTarget(channelID, excludeUser string) Target {
	return Target{Kind: TargetChannel, ChannelID: channelID, ExcludeUser: excludeUser}
}

// NotificationRequest - намерение отправить уведомление. Не сохраняется.
type NotificationRequest struct {
	Target Target
	Title  string
	Body   string
	SendOptions
}

// SendOptions содержит необязательные параметры отправки.
type SendOptions struct {
	// Data - произвольные данные. Значения приводятся к строкам перед отправкой.
	Data map[string]any
	// ClickAction - URL перехода по клику. Если nil, используется "<base_url>/raven".
	ClickAction *string
	// Image - URL изображения. Если nil, изображение не передается.
	// Относительные пути дополняются base_url.
	Image *string
}

// Зарезервированные FCM ключи data payload.
var reservedDataKeys = map[string]struct{}{
	"from":         {},
	"notification": {},
	"message_type": {},
}

// ValidateDataKeys проверяет, что ключи не пересекаются с зарезервированными словами FCM.
func ValidateDataKeys(data map[string]any) error {
	for key := range data {
		lower := strings.ToLower(key)
		if _, reserved := reservedDataKeys[lower]; reserved ||
			strings.HasPrefix(lower, "google") || strings.HasPrefix(lower, "gcm") {
			return fmt.Errorf("%w: %q", ErrReservedDataKey, key)
		}
	}
	return nil
}

// StringifyData приводит все значения к строкам: транспорт передает только map[string]string.
func StringifyData(data map[string]any) map[string]string {
	result := make(map[string]string, len(data))
	for k, v := range data {
		result[k] = stringify(v)
	}
	return result
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
