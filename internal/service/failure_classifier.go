package service

import (
	"context"
	"errors"
	"fmt"

	"chat-push/internal/interfaces"
	"chat-push/internal/metrics"
	"chat-push/internal/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// ProviderError - ошибка доставки с уже известным кодом провайдера.
type ProviderError struct {
	Code    models.ErrorCode
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCodeOf переводит ошибку отправки на токен в код классификации.
func ErrorCodeOf(err error) models.ErrorCode {
	if err == nil {
		return models.ErrorCodeNone
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Code
	}
	switch {
	case messaging.IsUnregistered(err):
		return models.ErrorCodeNotRegistered
	case messaging.IsInvalidArgument(err):
		return models.ErrorCodeInvalidToken
	case messaging.IsSenderIDMismatch(err):
		return models.ErrorCodeSenderIDMismatch
	case messaging.IsQuotaExceeded(err):
		return models.ErrorCodeQuotaExceeded
	case messaging.IsUnavailable(err):
		return models.ErrorCodeUnavailable
	case messaging.IsInternal(err):
		return models.ErrorCodeInternal
	default:
		return models.ErrorCodeUnknown
	}
}

// ClassificationReport - итог одного прохода классификатора.
type ClassificationReport struct {
	Deactivated        int
	DeactivationFailed int
	Transient          int
}

// FailureClassifier деактивирует токены с терминальными ошибками.
type FailureClassifier interface {
	// Classify никогда не возвращает ошибку: сбои деактивации только логируются.
	// owners сопоставляет токен с владельцем, если он однозначно известен.
	Classify(ctx context.Context, outcomes []models.TokenOutcome, owners map[string]string) ClassificationReport
}

type failureClassifier struct {
	registry interfaces.TokenDeactivator
	logger   *zap.Logger
}

func NewFailureClassifier(registry interfaces.TokenDeactivator, logger *zap.Logger) FailureClassifier {
	return &failureClassifier{
		registry: registry,
		logger:   logger.Named("failure_classifier"),
	}
}

func (c *failureClassifier) Classify(ctx context.Context, outcomes []models.TokenOutcome, owners map[string]string) ClassificationReport {
	var report ClassificationReport
	seen := make(map[string]struct{})

	for _, o := range outcomes {
		if o.Success {
			continue
		}
		log := c.logger.With(
			zap.String("token_prefix", models.TokenPrefix(o.Token)),
			zap.String("error_code", string(o.ErrorCode)),
		)
		if !o.ErrorCode.IsTerminal() {
			report.Transient++
			log.Warn("Нетерминальная ошибка доставки, токен остается активным", zap.Error(o.Err))
			continue
		}
		if _, done := seen[o.Token]; done {
			continue
		}
		seen[o.Token] = struct{}{}

		var userID *string
		if owner, ok := owners[o.Token]; ok && owner != "" {
			userID = &owner
		}
		if err := c.registry.DeactivateToken(ctx, o.Token, userID); err != nil {
			report.DeactivationFailed++
			metrics.TokensDeactivatedTotal.WithLabelValues("error").Inc()
			log.Error("Не удалось деактивировать невалидный токен", zap.Error(err))
			continue
		}
		report.Deactivated++
		metrics.TokensDeactivatedTotal.WithLabelValues("ok").Inc()
		log.Info("Невалидный токен деактивирован")
	}
	return report
}

var _ FailureClassifier = (*failureClassifier)(nil)
