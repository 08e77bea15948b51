package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/gometeo/cityweather/internal/model"
)

// NewProducerConfig - настройки продюсера для событий запросов
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	// Важно для надежности: ждать подтверждения от Kafka, что сообщение записано
	config.Producer.RequiredAcks = sarama.WaitForAll
	return config
}

// Publisher отправляет model.Lookup в Kafka. Ключ - нормализованный город,
// чтобы история одного города шла в одну партицию по порядку.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Kafka: %w", err)
	}
	return NewPublisherWithProducer(producer, topic, logger), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, l model.Lookup) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bytes, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("ошибка JSON: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(model.NormalizeCity(l.City)),
		Value: sarama.ByteEncoder(bytes),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %w", err)
	}

	p.logger.Debug("Событие отправлено",
		"id", l.ID,
		"city", l.City,
		"partition", partition,
		"offset", offset)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
