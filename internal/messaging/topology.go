package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dlqRoutingKey = "dlq"

// Topology описывает очередь заданий и ее dead-letter окружение.
// Параметры должны совпадать у паблишера и консьюмера.
type Topology struct {
	Queue              string
	DeadLetterExchange string
}

// DeadLetterQueue - имя очереди, куда попадают отклоненные задания.
func (t Topology) DeadLetterQueue() string {
	return t.Queue + ".dlq"
}

func (t Topology) queueArgs() amqp.Table {
	args := amqp.Table{}
	if t.DeadLetterExchange != "" {
		args["x-dead-letter-exchange"] = t.DeadLetterExchange
		args["x-dead-letter-routing-key"] = dlqRoutingKey
	}
	return args
}

// Declare объявляет DLX, DLQ и основную durable-очередь.
func (t Topology) Declare(ch *amqp.Channel) error {
	if t.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(
			t.DeadLetterExchange,
			"direct",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("не удалось объявить DLX '%s': %w", t.DeadLetterExchange, err)
		}
		if _, err := ch.QueueDeclare(t.DeadLetterQueue(), true, false, false, false, nil); err != nil {
			return fmt.Errorf("не удалось объявить DLQ '%s': %w", t.DeadLetterQueue(), err)
		}
		if err := ch.QueueBind(t.DeadLetterQueue(), dlqRoutingKey, t.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("не удалось связать DLQ '%s' с DLX '%s': %w", t.DeadLetterQueue(), t.DeadLetterExchange, err)
		}
	}

	if _, err := ch.QueueDeclare(
		t.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		t.queueArgs(),
	); err != nil {
		return fmt.Errorf("не удалось объявить очередь '%s': %w", t.Queue, err)
	}
	return nil
}
