package interfaces

import (
	"context"

	"chat-push/internal/models"

	"github.com/google/uuid"
)

// TokenRegistry хранит регистрации устройств по (user, token, environment).
type TokenRegistry interface {
	// RegisterToken идемпотентна для активной пары (user, token): возвращает ID существующей записи.
	RegisterToken(ctx context.Context, userID, token string, env models.Environment, deviceInfo *string) (uuid.UUID, error)
	// DeactivateToken идемпотентна: деактивация уже неактивного токена не является ошибкой.
	// Если userID == nil, деактивируются регистрации токена у всех пользователей.
	DeactivateToken(ctx context.Context, token string, userID *string) error
	// ActiveTokensForUser возвращает активные регистрации пользователя.
	ActiveTokensForUser(ctx context.Context, userID string) ([]models.DeviceRegistration, error)
	// ActiveTokensForUsers возвращает активные регистрации набора пользователей одним запросом.
	ActiveTokensForUsers(ctx context.Context, userIDs []string) ([]models.DeviceRegistration, error)
}

// TokenDeactivator - часть реестра, которая нужна классификатору ошибок.
type TokenDeactivator interface {
	DeactivateToken(ctx context.Context, token string, userID *string) error
}
