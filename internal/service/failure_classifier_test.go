package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	ifaceMocks "chat-push/internal/interfaces/mocks"
	"chat-push/internal/models"
	"chat-push/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func failed(token string, code models.ErrorCode) models.TokenOutcome {
	return models.TokenOutcome{Token: token, ErrorCode: code, Err: &service.ProviderError{Code: code}}
}

func TestFailureClassifier_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal codes deactivate, transient are only logged", func(t *testing.T) {
		registry := new(ifaceMocks.TokenRegistry)
		classifier := service.NewFailureClassifier(registry, zap.NewNop())

		registry.On("DeactivateToken", ctx, "dead", (*string)(nil)).Return(nil).Once()
		registry.On("DeactivateToken", ctx, "bad", (*string)(nil)).Return(nil).Once()

		report := classifier.Classify(ctx, []models.TokenOutcome{
			{Token: "ok", Success: true, MessageID: "m"},
			failed("dead", models.ErrorCodeNotRegistered),
			failed("bad", models.ErrorCodeInvalidToken),
			failed("busy", models.ErrorCodeQuotaExceeded),
			failed("down", models.ErrorCodeUnavailable),
			failed("who", models.ErrorCodeUnknown),
			failed("mismatch", models.ErrorCodeSenderIDMismatch),
		}, nil)

		assert.Equal(t, service.ClassificationReport{Deactivated: 2, Transient: 4}, report)
		registry.AssertExpectations(t)
		registry.AssertNumberOfCalls(t, "DeactivateToken", 2)
	})

	t.Run("same token deactivated once per pass", func(t *testing.T) {
		registry := new(ifaceMocks.TokenRegistry)
		classifier := service.NewFailureClassifier(registry, zap.NewNop())
		registry.On("DeactivateToken", ctx, "dup", (*string)(nil)).Return(nil).Once()

		report := classifier.Classify(ctx, []models.TokenOutcome{
			failed("dup", models.ErrorCodeNotRegistered),
			failed("dup", models.ErrorCodeNotRegistered),
		}, nil)

		assert.Equal(t, 1, report.Deactivated)
		registry.AssertNumberOfCalls(t, "DeactivateToken", 1)
	})

	t.Run("owner is passed when known", func(t *testing.T) {
		registry := new(ifaceMocks.TokenRegistry)
		classifier := service.NewFailureClassifier(registry, zap.NewNop())
		registry.On("DeactivateToken", ctx, "t1", mock.MatchedBy(func(u *string) bool {
			return u != nil && *u == "alice"
		})).Return(nil).Once()

		classifier.Classify(ctx, []models.TokenOutcome{failed("t1", models.ErrorCodeNotRegistered)}, map[string]string{"t1": "alice"})
		registry.AssertExpectations(t)
	})

	t.Run("registry errors are swallowed and processing continues", func(t *testing.T) {
		registry := new(ifaceMocks.TokenRegistry)
		classifier := service.NewFailureClassifier(registry, zap.NewNop())
		registry.On("DeactivateToken", ctx, "t1", (*string)(nil)).Return(errors.New("db down")).Once()
		registry.On("DeactivateToken", ctx, "t2", (*string)(nil)).Return(nil).Once()

		report := classifier.Classify(ctx, []models.TokenOutcome{
			failed("t1", models.ErrorCodeNotRegistered),
			failed("t2", models.ErrorCodeInvalidToken),
		}, nil)

		assert.Equal(t, 1, report.DeactivationFailed)
		assert.Equal(t, 1, report.Deactivated)
		registry.AssertExpectations(t)
	})

	t.Run("second pass on inactive token is a no-op for the caller", func(t *testing.T) {
		registry := new(ifaceMocks.TokenRegistry)
		classifier := service.NewFailureClassifier(registry, zap.NewNop())
		// Реестр идемпотентен: повторная деактивация не возвращает ошибку
		registry.On("DeactivateToken", ctx, "gone", (*string)(nil)).Return(nil).Twice()

		outcomes := []models.TokenOutcome{failed("gone", models.ErrorCodeNotRegistered)}
		first := classifier.Classify(ctx, outcomes, nil)
		second := classifier.Classify(ctx, outcomes, nil)

		assert.Equal(t, first, second)
		assert.Zero(t, second.DeactivationFailed)
	})
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorCode
	}{
		{"nil", nil, models.ErrorCodeNone},
		{"typed", &service.ProviderError{Code: models.ErrorCodeNotRegistered}, models.ErrorCodeNotRegistered},
		{"wrapped typed", fmt.Errorf("send: %w", &service.ProviderError{Code: models.ErrorCodeQuotaExceeded}), models.ErrorCodeQuotaExceeded},
		{"plain", errors.New("connection reset"), models.ErrorCodeUnknown},
		{"context", context.DeadlineExceeded, models.ErrorCodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.ErrorCodeOf(tt.err))
		})
	}
}
