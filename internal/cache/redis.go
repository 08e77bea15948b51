package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gometeo/cityweather/internal/model"
	"github.com/redis/go-redis/v9"
)

// ReportCache хранит успешные ответы OpenWeatherMap по городу.
// Эмодзи не кэшируем: день/ночь считается заново при каждом показе.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*ReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logger.Info("Успешное подключение к Redis", "addr", addr)

	return NewWithClient(client, ttl, logger), nil
}

// NewWithClient оборачивает уже созданный клиент (тесты, общий пул)
func NewWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ReportCache {
	return &ReportCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *ReportCache) Close() error {
	return c.client.Close()
}

func (c *ReportCache) Set(ctx context.Context, city string, report model.Report) error {
	bytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}

	key := CityKey(city)
	if err := c.client.Set(ctx, key, bytes, c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}

	c.logger.Debug("Данные сохранены в кэш", "key", key, "ttl", c.ttl)
	return nil
}

// Get возвращает nil, nil если ключа нет
func (c *ReportCache) Get(ctx context.Context, city string) (*model.Report, error) {
	key := CityKey(city)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, fmt.Errorf("ошибка десериализации: %w", err)
	}

	c.logger.Debug("Данные получены из кэша", "key", key)
	return &report, nil
}

func (c *ReportCache) Delete(ctx context.Context, city string) error {
	key := CityKey(city)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}

	c.logger.Debug("Данные удалены из кэша", "key", key)
	return nil
}

// Ping для health check
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func CityKey(city string) string {
	return "weather:city:" + model.NormalizeCity(city)
}
