package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/gometeo/cityweather/internal/model"
)

// NewConsumerConfig - читаем с самого начала, если у группы еще нет offset
func NewConsumerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	return config
}

type LookupSaver interface {
	Save(ctx context.Context, l model.Lookup) error
}

const (
	saveAttempts   = 3
	saveRetryDelay = time.Second
)

// ConsumerHandler сохраняет события запросов в историю
type ConsumerHandler struct {
	logger     *slog.Logger
	store      LookupSaver
	retryDelay time.Duration
}

func NewConsumerHandler(store LookupSaver, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{logger: logger, store: store, retryDelay: saveRetryDelay}
}

func (h *ConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *ConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *ConsumerHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var l model.Lookup
		if err := json.Unmarshal(msg.Value, &l); err != nil || l.ID == "" {
			// Битое сообщение повторно не прочитать лучше - помечаем и идем дальше
			h.logger.Error("Битый JSON", "offset", msg.Offset, "error", err)
			sess.MarkMessage(msg, "")
			continue
		}

		// Offset коммитится накопительно: пропустить сообщение и пометить
		// следующее значит потерять его. Поэтому при ошибке записи сессия
		// завершается, и группа перечитает партицию с этого сообщения.
		if err := h.save(sess.Context(), l); err != nil {
			return fmt.Errorf("сохранение %s (offset %d): %w", l.ID, msg.Offset, err)
		}

		h.logger.Info("Запрос сохранен в историю",
			"id", l.ID,
			"city", l.City,
			"succeeded", l.Succeeded())

		sess.MarkMessage(msg, "")
	}
	return nil
}

// save повторяет запись несколько раз, пока жив контекст сессии
func (h *ConsumerHandler) save(ctx context.Context, l model.Lookup) error {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if err = h.store.Save(ctx, l); err == nil {
			return nil
		}
		h.logger.Error("Ошибка записи в БД",
			"city", l.City,
			"попытка", attempt,
			"всего", saveAttempts,
			"error", err)
		if attempt == saveAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.retryDelay):
		}
	}
	return err
}
