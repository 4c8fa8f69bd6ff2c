package events

import (
	"context"
	"fmt"

	"github.com/senyabanana/order-bidding/internal/models"

	"github.com/IBM/sarama"
)

// KafkaProducer публикует события в топик Kafka. Ключ сообщения - ID заказа,
// поэтому события одного заказа попадают в одну партицию.
type KafkaProducer struct {
	topic string
	conn  sarama.SyncProducer
}

// NewKafkaProducer подключается к брокерам и создает синхронного продюсера.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Idempotent = true
	conf.Producer.Retry.Max = 5
	conf.Net.MaxOpenRequests = 1

	conn, err := sarama.NewSyncProducer(brokers, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to start kafka producer: %w", err)
	}
	return &KafkaProducer{topic: topic, conn: conn}, nil
}

// Push отправляет пачку сообщений одним вызовом.
func (p *KafkaProducer) Push(_ context.Context, messages []models.OutboxMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return p.conn.SendMessages(toKafkaMessages(messages, p.topic))
}

func (p *KafkaProducer) Close() error {
	return p.conn.Close()
}

func toKafkaMessages(messages []models.OutboxMessage, topic string) []*sarama.ProducerMessage {
	res := make([]*sarama.ProducerMessage, 0, len(messages))
	for _, msg := range messages {
		res = append(res, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(msg.Key),
			Value: sarama.ByteEncoder(msg.Content),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event-type"), Value: []byte(msg.Type)},
			},
		})
	}
	return res
}
