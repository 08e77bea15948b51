package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gometeo/cityweather/internal/api"
	"github.com/gometeo/cityweather/internal/api/handlers"
	"github.com/gometeo/cityweather/internal/cache"
	"github.com/gometeo/cityweather/internal/config"
	"github.com/gometeo/cityweather/internal/events"
	"github.com/gometeo/cityweather/internal/logging"
	"github.com/gometeo/cityweather/internal/metrics"
	"github.com/gometeo/cityweather/internal/owm"
	"github.com/gometeo/cityweather/internal/storage"
	"github.com/gometeo/cityweather/internal/weather"
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	logger := logging.New(cfg, os.Stdout)
	logger.Info("Запуск Weather API сервиса...")
	logger.Info("Конфигурация загружена",
		"port", cfg.HTTPPort,
		"redis", cfg.RedisAddr,
		"kafka", cfg.KafkaBrokers,
		"cache_ttl", cfg.CacheTTL)

	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY не задан, все запросы вернут 401")
	}

	// 1. Подключение к Postgres
	store, err := storage.New(cfg.DBDSN, logger)
	if err != nil {
		logger.Error("Не удалось подключиться к БД", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Успешное подключение к Postgres")

	// 2. Подключение к Redis
	redisCache, err := cache.New(
		cfg.RedisAddr,
		cfg.RedisPassword,
		cfg.RedisDB,
		cfg.CacheTTL,
		logger,
	)
	if err != nil {
		logger.Error("Не удалось подключиться к Redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()
	logger.Info("Успешное подключение к Redis")

	// 3. Kafka: каждый запрос уходит в историю через aggregator
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

	// 4. Сервис погоды
	recorder := metrics.New()
	client := owm.New(cfg.OpenWeatherAPIKey, owm.WithBaseURL(cfg.OpenWeatherBaseURL))
	service := weather.NewService(client, logger,
		weather.WithCache(redisCache),
		weather.WithPublisher(publisher),
		weather.WithMetrics(recorder),
	)

	weatherHandler := handlers.NewWeatherHandler(service, store, redisCache, logger)
	router := api.NewRouter(weatherHandler, recorder, logger)

	// 5. Настройка HTTP сервера
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 6. Graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Сервер запущен", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка сервера", "error", err)
			stopChan <- syscall.SIGTERM
		}
	}()

	// Ожидание сигнала завершения
	<-stopChan
	logger.Info("Получен сигнал завершения...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Ошибка при остановке сервера", "error", err)
	} else {
		logger.Info("Сервер остановлен")
	}
}
