package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/logger"
)

// KafkaPublisher пишет события уведомлений в топик Kafka. Ключ сообщения - id бронирования,
// поэтому события одного бронирования попадают в одну партицию по порядку.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: не удалось записать событие: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher - заглушка для окружений без Kafka: событие только пишется в лог.
type LogPublisher struct {
	log *logrus.Entry
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.Component("events")}
}

func (p *LogPublisher) Publish(ctx context.Context, key string, value []byte) error {
	p.log.WithFields(logrus.Fields{"key": key, "size": len(value)}).Debug("событие не опубликовано: KAFKA_BROKERS не задан")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
