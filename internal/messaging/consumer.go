package messaging

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumerTag = "push-dispatch-consumer"

// DeliveryHandler обрабатывает одну доставку и сам отвечает за Ack/Nack.
type DeliveryHandler interface {
	ProcessMessage(ctx context.Context, d amqp.Delivery)
}

// QueueStatus - состояние очереди заданий для админки.
type QueueStatus struct {
	Queue      string `json:"queue"`
	Messages   int    `json:"messages"`
	Consumers  int    `json:"consumers"`
	DeadLetter int    `json:"dead_letter_messages"`
}

// ConsumerStats - счетчики консьюмера с момента старта.
type ConsumerStats struct {
	Workers       int    `json:"workers"`
	ActiveWorkers int64  `json:"active_workers"`
	Received      uint64 `json:"received"`
	Running       bool   `json:"running"`
}

type Consumer struct {
	conn        *amqp.Connection
	logger      *zap.Logger
	topology    Topology
	concurrency int
	handler     DeliveryHandler
	stopChannel chan struct{}
	stopOnce    sync.Once
	cancelFunc  context.CancelFunc
	wg          sync.WaitGroup

	activeWorkers atomic.Int64
	received      atomic.Uint64
	running       atomic.Bool
}

func NewConsumer(conn *amqp.Connection, logger *zap.Logger, topology Topology, concurrency int, handler DeliveryHandler) (*Consumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	return &Consumer{
		conn:        conn,
		logger:      logger.Named("consumer").With(zap.String("queue", topology.Queue)),
		topology:    topology,
		concurrency: concurrency,
		handler:     handler,
		stopChannel: make(chan struct{}),
	}, nil
}

// Start блокируется до вызова Stop() или до закрытия канала доставок.
func (c *Consumer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFunc = cancel
	defer cancel()

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("не удалось открыть канал RabbitMQ: %w", err)
	}
	defer ch.Close()

	if err := c.topology.Declare(ch); err != nil {
		return err
	}
	c.logger.Info("Очередь успешно объявлена/найдена")

	if err := ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("не удалось установить QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.topology.Queue,
		consumerTag,
		false, // auto-ack = false
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("не удалось зарегистрировать консьюмера: %w", err)
	}

	c.logger.Info("Консьюмер запущен, ожидание сообщений...", zap.Int("concurrency", c.concurrency))
	c.running.Store(true)
	defer c.running.Store(false)

	workersDone := make(chan struct{})
	c.wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go c.worker(ctx, i, msgs)
	}
	go func() {
		c.wg.Wait()
		close(workersDone)
	}()

	select {
	case <-c.stopChannel:
		c.logger.Info("Получен сигнал остановки, отменяем контекст воркеров...")
		// Отменяем регистрацию, чтобы брокер перестал присылать новые доставки
		if err := ch.Cancel(consumerTag, false); err != nil {
			c.logger.Warn("Ошибка отмены консьюмера", zap.Error(err))
		}
		c.cancelFunc()
		<-workersDone
	case <-workersDone:
		c.logger.Warn("Канал доставок закрыт, все воркеры завершились")
		return fmt.Errorf("канал доставок очереди '%s' закрыт", c.topology.Queue)
	}

	c.logger.Info("Все воркеры консьюмера остановлены")
	return nil
}

func (c *Consumer) worker(ctx context.Context, workerID int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()
	logger := c.logger.With(zap.Int("worker_id", workerID))
	logger.Debug("Воркер запущен")
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Воркер останавливается из-за отмены контекста")
			return
		case d, ok := <-msgs:
			if !ok {
				logger.Info("Канал сообщений закрыт, воркер завершает работу")
				return
			}
			c.received.Add(1)
			c.activeWorkers.Add(1)
			logger.Debug("Получено сообщение", zap.Uint64("delivery_tag", d.DeliveryTag))
			c.handler.ProcessMessage(ctx, d)
			c.activeWorkers.Add(-1)
		}
	}
}

func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("Инициирована остановка консьюмера...")
		close(c.stopChannel)
	})
}

func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Workers:       c.concurrency,
		ActiveWorkers: c.activeWorkers.Load(),
		Received:      c.received.Load(),
		Running:       c.running.Load(),
	}
}

// QueueStatus читает глубину основной очереди и DLQ через пассивное объявление.
func (c *Consumer) QueueStatus(ctx context.Context) (QueueStatus, error) {
	return InspectQueue(ctx, c.conn, c.topology)
}

func InspectQueue(ctx context.Context, conn *amqp.Connection, topology Topology) (QueueStatus, error) {
	if err := ctx.Err(); err != nil {
		return QueueStatus{}, err
	}
	status := QueueStatus{Queue: topology.Queue}

	// Пассивное объявление несуществующей очереди закрывает канал, поэтому канал на каждый запрос
	ch, err := conn.Channel()
	if err != nil {
		return status, fmt.Errorf("не удалось открыть канал RabbitMQ: %w", err)
	}
	q, err := ch.QueueDeclarePassive(topology.Queue, true, false, false, false, topology.queueArgs())
	ch.Close()
	if err != nil {
		return status, fmt.Errorf("не удалось прочитать очередь '%s': %w", topology.Queue, err)
	}
	status.Messages = q.Messages
	status.Consumers = q.Consumers

	if topology.DeadLetterExchange == "" {
		return status, nil
	}
	dch, err := conn.Channel()
	if err != nil {
		return status, fmt.Errorf("не удалось открыть канал RabbitMQ: %w", err)
	}
	defer dch.Close()
	dlq, err := dch.QueueDeclarePassive(topology.DeadLetterQueue(), true, false, false, false, nil)
	if err != nil {
		return status, fmt.Errorf("не удалось прочитать очередь '%s': %w", topology.DeadLetterQueue(), err)
	}
	status.DeadLetter = dlq.Messages
	return status, nil
}
