package repository

import (
	"context"
	"errors"
	"fmt"

	"chat-push/internal/interfaces"
	"chat-push/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	registrationColumns = `id, user_id, token, environment, device_information, is_active, created_at, updated_at`

	// Повторная регистрация реактивирует запись и возвращает ее прежний ID
	registerTokenQuery = `
		INSERT INTO push_device_tokens (user_id, token, environment, device_information)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, token)
		DO UPDATE SET
			environment = EXCLUDED.environment,
			device_information = COALESCE(EXCLUDED.device_information, push_device_tokens.device_information),
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id;
	`
	deactivateTokenQuery        = `UPDATE push_device_tokens SET is_active = FALSE, updated_at = NOW() WHERE token = $1 AND is_active;`
	deactivateTokenForUserQuery = `UPDATE push_device_tokens SET is_active = FALSE, updated_at = NOW() WHERE token = $1 AND user_id = $2 AND is_active;`
	activeTokensForUserQuery    = `SELECT ` + registrationColumns + ` FROM push_device_tokens WHERE user_id = $1 AND is_active ORDER BY created_at;`
	activeTokensForUsersQuery   = `SELECT ` + registrationColumns + ` FROM push_device_tokens WHERE user_id = ANY($1) AND is_active ORDER BY user_id, created_at;`
)

var _ interfaces.TokenRegistry = (*pgTokenRegistry)(nil)

type pgTokenRegistry struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgTokenRegistry(db interfaces.DBTX, logger *zap.Logger) interfaces.TokenRegistry {
	return &pgTokenRegistry{
		db:     db,
		logger: logger.Named("token_registry"),
	}
}

// RegisterToken сохраняет токен устройства для пользователя.
func (r *pgTokenRegistry) RegisterToken(ctx context.Context, userID, token string, env models.Environment, deviceInfo *string) (uuid.UUID, error) {
	if userID == "" || token == "" {
		return uuid.Nil, models.ErrInvalidToken
	}
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, registerTokenQuery, userID, token, env, deviceInfo).Scan(&id); err != nil {
		r.logger.Error("Failed to register device token",
			zap.String("userID", userID),
			zap.String("environment", string(env)),
			zap.Error(err),
		)
		return uuid.Nil, fmt.Errorf("db error registering device token: %w", err)
	}

	r.logger.Debug("Device token registered",
		zap.String("userID", userID),
		zap.String("token", models.TokenPrefix(token)),
		zap.String("registrationID", id.String()),
	)
	return id, nil
}

func (r *pgTokenRegistry) DeactivateToken(ctx context.Context, token string, userID *string) error {
	log := r.logger.With(zap.String("token", models.TokenPrefix(token)))

	var (
		query = deactivateTokenQuery
		args  = []any{token}
	)
	if userID != nil {
		query = deactivateTokenForUserQuery
		args = append(args, *userID)
		log = log.With(zap.String("userID", *userID))
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		log.Error("Failed to deactivate device token", zap.Error(err))
		return fmt.Errorf("db error deactivating device token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Уже неактивен или не существует - не ошибка
		log.Debug("Device token already inactive or absent")
		return nil
	}
	log.Info("Device token deactivated", zap.Int64("rows", cmdTag.RowsAffected()))
	return nil
}

func (r *pgTokenRegistry) ActiveTokensForUser(ctx context.Context, userID string) ([]models.DeviceRegistration, error) {
	regs := make([]models.DeviceRegistration, 0)
	if err := pgxscan.Select(ctx, r.db, &regs, activeTokensForUserQuery, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return regs, nil
		}
		r.logger.Error("Failed to query device tokens", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("db error querying device tokens: %w", err)
	}
	return regs, nil
}

func (r *pgTokenRegistry) ActiveTokensForUsers(ctx context.Context, userIDs []string) ([]models.DeviceRegistration, error) {
	regs := make([]models.DeviceRegistration, 0)
	if len(userIDs) == 0 {
		return regs, nil
	}
	if err := pgxscan.Select(ctx, r.db, &regs, activeTokensForUsersQuery, userIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return regs, nil
		}
		r.logger.Error("Failed to query device tokens for users", zap.Int("users", len(userIDs)), zap.Error(err))
		return nil, fmt.Errorf("db error querying device tokens: %w", err)
	}
	return regs, nil
}
