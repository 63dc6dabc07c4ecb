package service

import (
	"strings"
	"time"

	"chat-push/internal/models"

	"firebase.google.com/go/v4/messaging"
)

// payloadBuilder собирает одинаковый для всех токенов payload: notification, data и webpush.
type payloadBuilder struct {
	baseURL  string
	siteName string
	iconPath string
	now      func() time.Time
}

// preparedPayload - payload, готовый к отправке multicast или на один токен.
type preparedPayload struct {
	notification *messaging.Notification
	data         map[string]string
	webpush      *messaging.WebpushConfig
	android      *messaging.AndroidConfig
}

func (b payloadBuilder) build(title, body string, opts models.SendOptions) (preparedPayload, error) {
	if err := models.ValidateDataKeys(opts.Data); err != nil {
		return preparedPayload{}, err
	}

	data := models.StringifyData(opts.Data)
	// Служебные ключи перекрывают пользовательские
	data["base_url"] = b.baseURL
	data["sitename"] = b.siteName
	data["timestamp"] = b.now().UTC().Format(time.RFC3339)
	data["click_action"] = b.clickAction(opts.ClickAction)

	image := b.absoluteURL(opts.Image)

	return preparedPayload{
		notification: &messaging.Notification{
			Title:    title,
			Body:     body,
			ImageURL: image,
		},
		data: data,
		webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: title,
				Body:  body,
				Icon:  b.iconPath,
				Image: image,
			},
		},
		android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}, nil
}

func (b payloadBuilder) clickAction(custom *string) string {
	if custom != nil && *custom != "" {
		return *custom
	}
	return b.baseURL + "/raven"
}

// absoluteURL дополняет относительный путь базовым URL сайта.
func (b payloadBuilder) absoluteURL(path *string) string {
	if path == nil || *path == "" {
		return ""
	}
	return absoluteURL(b.baseURL, *path)
}

func absoluteURL(baseURL, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "/") {
		return baseURL + path
	}
	return path
}

func (p preparedPayload) multicast(tokens []string) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: p.notification,
		Data:         p.data,
		Webpush:      p.webpush,
		Android:      p.android,
	}
}

func (p preparedPayload) single(token string) *messaging.Message {
	return &messaging.Message{
		Token:        token,
		Notification: p.notification,
		Data:         p.data,
		Webpush:      p.webpush,
		Android:      p.android,
	}
}
