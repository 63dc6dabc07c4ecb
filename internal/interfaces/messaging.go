package interfaces

import (
	"context"

	"chat-push/internal/models"
)

// DispatchJobPublisher ставит задания на отправку в очередь.
type DispatchJobPublisher interface {
	PublishDispatchJob(ctx context.Context, job models.DispatchJob) error
}

// MessageNotifier обрабатывает задание: перечитывает сообщение и рассылает уведомления.
type MessageNotifier interface {
	NotifyMessage(ctx context.Context, messageID string) error
}

// JobDeduplicator отсекает повторную обработку одного и того же сообщения.
type JobDeduplicator interface {
	// MarkProcessing возвращает false, если задание для messageID уже обрабатывалось.
	MarkProcessing(ctx context.Context, messageID string) (bool, error)
}
