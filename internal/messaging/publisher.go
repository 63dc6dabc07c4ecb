package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat-push/internal/interfaces"
	"chat-push/internal/metrics"
	"chat-push/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// rabbitDispatchJobPublisher публикует задания на рассылку в очередь через default exchange.
type rabbitDispatchJobPublisher struct {
	conn     *amqp.Connection
	topology Topology
	logger   *zap.Logger
}

// NewRabbitDispatchJobPublisher проверяет топологию при старте и возвращает паблишер.
func NewRabbitDispatchJobPublisher(conn *amqp.Connection, topology Topology, logger *zap.Logger) (interfaces.DispatchJobPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	p := &rabbitDispatchJobPublisher{
		conn:     conn,
		topology: topology,
		logger:   logger.Named("DispatchJobPublisher").With(zap.String("queue", topology.Queue)),
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()
	if err := topology.Declare(ch); err != nil {
		return nil, fmt.Errorf("failed to verify queue %s on init: %w", topology.Queue, err)
	}

	p.logger.Info("DispatchJobPublisher инициализирован")
	return p, nil
}

func (p *rabbitDispatchJobPublisher) PublishDispatchJob(ctx context.Context, job models.DispatchJob) error {
	log := p.logger.With(zap.String("message_id", job.MessageID), zap.String("request_id", job.RequestID))

	body, err := json.Marshal(job)
	if err != nil {
		metrics.JobsEnqueuedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to marshal dispatch job: %w", err)
	}

	// Отдельный канал на публикацию: amqp.Channel не безопасен для конкурентного использования
	ch, err := p.conn.Channel()
	if err != nil {
		metrics.JobsEnqueuedTotal.WithLabelValues("error").Inc()
		log.Error("Не удалось открыть канал для публикации", zap.Error(err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		"",               // exchange (default)
		p.topology.Queue, // routing key (имя очереди)
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    job.RequestID,
			Body:         body,
		},
	)
	if err != nil {
		metrics.JobsEnqueuedTotal.WithLabelValues("error").Inc()
		log.Error("Ошибка публикации задания на рассылку", zap.Error(err))
		return fmt.Errorf("failed to publish dispatch job: %w", err)
	}

	metrics.JobsEnqueuedTotal.WithLabelValues("ok").Inc()
	log.Debug("Задание на рассылку опубликовано")
	return nil
}

var _ interfaces.DispatchJobPublisher = (*rabbitDispatchJobPublisher)(nil)
