package service

import (
	"context"
	"fmt"

	"chat-push/internal/interfaces"
	"chat-push/internal/models"

	"go.uber.org/zap"
)

// TargetResolver раскрывает логическую цель в список активных токенов устройств.
type TargetResolver interface {
	Resolve(ctx context.Context, target models.Target) ([]string, error)
	// ResolveRegistrations возвращает регистрации целиком, чтобы знать владельцев токенов.
	ResolveRegistrations(ctx context.Context, target models.Target) ([]models.DeviceRegistration, error)
}

type targetResolver struct {
	registry   interfaces.TokenRegistry
	membership interfaces.ChannelMembership
	logger     *zap.Logger
}

func NewTargetResolver(registry interfaces.TokenRegistry, membership interfaces.ChannelMembership, logger *zap.Logger) TargetResolver {
	return &targetResolver{
		registry:   registry,
		membership: membership,
		logger:     logger.Named("target_resolver"),
	}
}

func (r *targetResolver) Resolve(ctx context.Context, target models.Target) ([]string, error) {
	regs, err := r.ResolveRegistrations(ctx, target)
	if err != nil {
		return nil, err
	}
	return models.TokenStrings(regs), nil
}

func (r *targetResolver) ResolveRegistrations(ctx context.Context, target models.Target) ([]models.DeviceRegistration, error) {
	switch target.Kind {
	case models.TargetUser:
		if target.UserID == "" {
			return nil, models.ErrEmptyTarget
		}
		regs, err := r.registry.ActiveTokensForUser(ctx, target.UserID)
		if err != nil {
			return nil, fmt.Errorf("ошибка получения токенов пользователя %s: %w", target.UserID, err)
		}
		r.logMiss(regs, zap.String("user_id", target.UserID))
		return regs, nil

	case models.TargetUsers:
		return r.resolveUsers(ctx, target.UserIDs)

	case models.TargetChannel:
		if target.ChannelID == "" {
			return nil, models.ErrEmptyTarget
		}
		return r.resolveChannel(ctx, target.ChannelID, target.ExcludeUser)

	default:
		return nil, fmt.Errorf("%w: unknown target kind %q", models.ErrEmptyTarget, target.Kind)
	}
}

func (r *targetResolver) resolveUsers(ctx context.Context, userIDs []string) ([]models.DeviceRegistration, error) {
	if len(userIDs) == 0 {
		r.logger.Debug("Пустой список пользователей, отправлять некому")
		return []models.DeviceRegistration{}, nil
	}
	regs, err := r.registry.ActiveTokensForUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения токенов %d пользователей: %w", len(userIDs), err)
	}
	r.logMiss(regs, zap.Int("user_count", len(userIDs)))
	return regs, nil
}

func (r *targetResolver) resolveChannel(ctx context.Context, channelID, excludeUser string) ([]models.DeviceRegistration, error) {
	log := r.logger.With(zap.String("channel_id", channelID), zap.String("exclude_user", excludeUser))

	members, err := r.membership.MembersOf(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения участников канала %s: %w", channelID, err)
	}

	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		if !m.NotificationsEnabled || m.UserID == "" || m.UserID == excludeUser {
			continue
		}
		userIDs = append(userIDs, m.UserID)
	}
	if len(userIDs) == 0 {
		log.Debug("В канале нет участников для уведомления", zap.Int("members", len(members)))
		return []models.DeviceRegistration{}, nil
	}

	regs, err := r.resolveUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.DeviceRegistration, 0, len(regs))
	for _, reg := range regs {
		if excludeUser != "" && reg.UserID == excludeUser {
			continue
		}
		filtered = append(filtered, reg)
	}
	return filtered, nil
}

func (r *targetResolver) logMiss(regs []models.DeviceRegistration, fields ...zap.Field) {
	if len(regs) == 0 {
		r.logger.Debug("Активные токены не найдены", fields...)
	}
}

var _ TargetResolver = (*targetResolver)(nil)
