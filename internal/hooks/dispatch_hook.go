package hooks

import (
	"context"
	"fmt"

	"chat-push/internal/interfaces"
	"chat-push/internal/metrics"
	"chat-push/internal/models"
	"chat-push/internal/service"

	"go.uber.org/zap"
)

// DispatchHook пропускает событие через гейт и ставит задание в очередь.
// Отправка провайдеру происходит только в воркере.
type DispatchHook struct {
	publisher interfaces.DispatchJobPublisher
	logger    *zap.Logger
}

func NewDispatchHook(publisher interfaces.DispatchJobPublisher, logger *zap.Logger) *DispatchHook {
	return &DispatchHook{
		publisher: publisher,
		logger:    logger.Named("DispatchHook"),
	}
}

func (h *DispatchHook) Name() string { return "push_dispatch" }

func (h *DispatchHook) OnMessageCreated(ctx context.Context, event models.MessageEvent) error {
	decision := service.Evaluate(event)
	metrics.GateDecisionsTotal.WithLabelValues(decisionLabel(decision), decision.Reason).Inc()
	if !decision.Accept {
		h.logger.Debug("Событие отклонено гейтом",
			zap.String("message_id", event.MessageID),
			zap.String("reason", decision.Reason))
		return nil
	}
	if event.MessageID == "" {
		return fmt.Errorf("message event without message_id")
	}

	job := models.NewDispatchJob(event.MessageID)
	if err := h.publisher.PublishDispatchJob(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue dispatch job for message %s: %w", event.MessageID, err)
	}
	h.logger.Debug("Задание на рассылку поставлено в очередь",
		zap.String("message_id", event.MessageID),
		zap.String("request_id", job.RequestID))
	return nil
}

func decisionLabel(d service.GateDecision) string {
	if d.Accept {
		return "accept"
	}
	return "reject"
}

var _ MessageCreatedObserver = (*DispatchHook)(nil)
