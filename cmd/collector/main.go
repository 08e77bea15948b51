package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gometeo/cityweather/internal/config"
	"github.com/gometeo/cityweather/internal/events"
	"github.com/gometeo/cityweather/internal/logging"
	"github.com/gometeo/cityweather/internal/model"
	"github.com/gometeo/cityweather/internal/owm"
	"github.com/gometeo/cityweather/internal/weather"
)

const lookupTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.New(cfg, os.Stdout)
	logger.Info("Запуск Weather Collector...",
		"cities", cfg.CollectCities,
		"interval", cfg.CollectInterval)

	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY не задан, все запросы вернут 401")
	}

	// 1. Настройка Kafka Producer
	publisher, err := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		logger.Error("Ошибка подключения к Kafka", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Ошибка при закрытии продюсера", "error", err)
		}
	}()

	// Без кэша: коллектор всегда пишет свежие данные
	client := owm.New(cfg.OpenWeatherAPIKey, owm.WithBaseURL(cfg.OpenWeatherBaseURL))
	service := weather.NewService(client, logger, weather.WithPublisher(publisher))

	// 2. Graceful Shutdown (Ctrl+C)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Тикер вместо CRON
	ticker := time.NewTicker(cfg.CollectInterval)
	defer ticker.Stop()

	logger.Info("Начинаем сбор данных...")
	collect(ctx, service, cfg.CollectCities, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Получен сигнал завершения. Остановка...")
			return
		case <-ticker.C:
			collect(ctx, service, cfg.CollectCities, logger)
		}
	}
}

type lookuper interface {
	Lookup(ctx context.Context, city string) model.Lookup
}

// collect опрашивает города по одному, чтобы не упираться в лимиты OpenWeatherMap
func collect(ctx context.Context, svc lookuper, cities []string, logger *slog.Logger) {
	for _, city := range cities {
		if ctx.Err() != nil {
			return
		}

		lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		l := svc.Lookup(lctx, city)
		cancel()

		if l.Outcome != nil {
			logger.Warn("Не удалось получить погоду",
				"city", city,
				"kind", l.Outcome.Kind,
				"status", l.Outcome.Status)
			continue
		}
		logger.Info("Погода отправлена",
			"city", l.City,
			"temp", l.View.Temperature,
			"glyph", l.View.Glyph)
	}
}
