package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Environment определяет тип клиента, зарегистрировавшего токен.
type Environment string

const (
	EnvironmentWeb    Environment = "Web"
	EnvironmentMobile Environment = "Mobile"
)

// ParseEnvironment нормализует строку окружения. Пустая строка трактуется как Web.
func ParseEnvironment(raw string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "web":
		return EnvironmentWeb, nil
	case "mobile":
		return EnvironmentMobile, nil
	default:
		return "", ErrInvalidEnvironment
	}
}

// DeviceRegistration - одна точка доставки push-уведомлений (браузер или установленное приложение).
type DeviceRegistration struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	Token       string      `json:"token" db:"token"`
	Environment Environment `json:"environment" db:"environment"`
	DeviceInfo  *string     `json:"device_information,omitempty" db:"device_information"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// TokenStrings возвращает только строки токенов в исходном порядке.
func TokenStrings(regs []DeviceRegistration) []string {
	tokens := make([]string, 0, len(regs))
	for _, r := range regs {
		tokens = append(tokens, r.Token)
	}
	return tokens
}

// TokenPrefix возвращает начало токена для логирования.
func TokenPrefix(token string) string {
	prefixLen := 10
	if len(token) < prefixLen {
		return token
	}
	return token[:prefixLen] + "..."
}
