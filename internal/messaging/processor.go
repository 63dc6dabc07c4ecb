package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"chat-push/internal/interfaces"
	"chat-push/internal/metrics"
	"chat-push/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	outcomeDone      = "done"
	outcomeFailed    = "failed"
	outcomeMalformed = "malformed"
	outcomeDuplicate = "duplicate"
	outcomeRequeued  = "requeued"
)

// ProcessorConfig - тайминги обработки задания.
type ProcessorConfig struct {
	// ProcessingDelay отсчитывается от EnqueuedAt, чтобы вложения сообщения успели сохраниться.
	ProcessingDelay time.Duration
	JobTimeout      time.Duration
}

// ProcessorStats - счетчики обработанных заданий.
type ProcessorStats struct {
	Processed  uint64 `json:"processed"`
	Failed     uint64 `json:"failed"`
	Malformed  uint64 `json:"malformed"`
	Duplicates uint64 `json:"duplicates"`
}

// Processor обрабатывает входящие задания на рассылку
type Processor struct {
	logger   *zap.Logger
	notifier interfaces.MessageNotifier
	dedup    interfaces.JobDeduplicator // nil - дедупликация отключена
	cfg      ProcessorConfig

	processed  atomic.Uint64
	failed     atomic.Uint64
	malformed  atomic.Uint64
	duplicates atomic.Uint64
}

func NewProcessor(logger *zap.Logger, notifier interfaces.MessageNotifier, dedup interfaces.JobDeduplicator, cfg ProcessorConfig) *Processor {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 60 * time.Second
	}
	return &Processor{
		logger:   logger.Named("processor"),
		notifier: notifier,
		dedup:    dedup,
		cfg:      cfg,
	}
}

func (p *Processor) Stats() ProcessorStats {
	return ProcessorStats{
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Malformed:  p.malformed.Load(),
		Duplicates: p.duplicates.Load(),
	}
}

func (p *Processor) ProcessMessage(ctx context.Context, d amqp.Delivery) {
	log := p.logger.With(zap.Uint64("delivery_tag", d.DeliveryTag))
	log.Debug("Обработка сообщения")

	var job models.DispatchJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.MessageID == "" {
		if err == nil {
			err = fmt.Errorf("empty message_id")
		}
		log.Error("Некорректное задание на рассылку", zap.Error(err), zap.ByteString("body", d.Body))
		p.malformed.Add(1)
		metrics.JobsProcessedTotal.WithLabelValues(outcomeMalformed).Inc()
		// Отклоняем без повторной постановки (уйдет в DLQ)
		if ackErr := d.Nack(false, false); ackErr != nil {
			log.Error("Ошибка Nack сообщения после ошибки JSON", zap.Error(ackErr))
		}
		return
	}

	log = log.With(zap.String("message_id", job.MessageID), zap.String("request_id", job.RequestID))

	if wait := p.remainingDelay(job.EnqueuedAt); wait > 0 {
		if err := sleepContext(ctx, wait); err != nil {
			// Консьюмер останавливается: вернем задание в очередь
			log.Info("Остановка во время ожидания, задание возвращается в очередь")
			metrics.JobsProcessedTotal.WithLabelValues(outcomeRequeued).Inc()
			if ackErr := d.Nack(false, true); ackErr != nil {
				log.Error("Ошибка Nack сообщения при остановке", zap.Error(ackErr))
			}
			return
		}
	}

	if p.dedup != nil {
		first, err := p.dedup.MarkProcessing(ctx, job.MessageID)
		if err != nil {
			log.Warn("Ошибка дедупликации, продолжаем обработку", zap.Error(err))
		} else if !first {
			log.Info("Задание уже обрабатывалось, пропускаем")
			p.duplicates.Add(1)
			metrics.JobsProcessedTotal.WithLabelValues(outcomeDuplicate).Inc()
			p.ack(d, log)
			return
		}
	}

	processCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	if err := p.notify(processCtx, job.MessageID); err != nil {
		// Ошибка рассылки не повторяется: уведомления best-effort
		log.Error("Ошибка обработки задания на рассылку", zap.Error(err))
		p.failed.Add(1)
		metrics.JobsProcessedTotal.WithLabelValues(outcomeFailed).Inc()
	} else {
		p.processed.Add(1)
		metrics.JobsProcessedTotal.WithLabelValues(outcomeDone).Inc()
		log.Debug("Задание обработано")
	}
	p.ack(d, log)
}

func (p *Processor) notify(ctx context.Context, messageID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during notification: %v", r)
		}
	}()
	return p.notifier.NotifyMessage(ctx, messageID)
}

func (p *Processor) remainingDelay(enqueuedAt time.Time) time.Duration {
	if p.cfg.ProcessingDelay <= 0 || enqueuedAt.IsZero() {
		return 0
	}
	return p.cfg.ProcessingDelay - time.Since(enqueuedAt)
}

func (p *Processor) ack(d amqp.Delivery, log *zap.Logger) {
	if err := d.Ack(false); err != nil {
		log.Error("Ошибка Ack сообщения", zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ DeliveryHandler = (*Processor)(nil)
