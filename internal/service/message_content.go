package service

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"chat-push/internal/models"
)

const (
	maxBodyRunes        = 200
	maxDataContentRunes = 1000
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// notificationBody - текст уведомления для сообщения данного типа.
func notificationBody(msg models.StoredMessage) string {
	switch msg.MessageType {
	case models.MessageTypeImage:
		return "📷 Image"
	case models.MessageTypeFile:
		return "📎 File"
	case models.MessageTypePoll:
		return "📊 Poll"
	case models.MessageTypeGroupCall:
		return "📞 Group call"
	default:
		return truncateRunes(plainText(msg.Content), maxBodyRunes)
	}
}

// dataContent - содержимое для data payload: текст для Text, ссылка на файл для остальных.
func dataContent(msg models.StoredMessage) string {
	if msg.MessageType == models.MessageTypeText {
		return truncateRunes(plainText(msg.Content), maxDataContentRunes)
	}
	return msg.File
}

// plainText убирает HTML-разметку редактора и схлопывает пробелы.
func plainText(content string) string {
	text := htmlTagPattern.ReplaceAllString(content, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
