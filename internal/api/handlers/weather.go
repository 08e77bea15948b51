package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/gometeo/cityweather/internal/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Lookuper interface {
	Lookup(ctx context.Context, city string) model.Lookup
}

type HistoryStore interface {
	Recent(ctx context.Context, city string, limit int) ([]model.Lookup, error)
	Cities(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type WeatherHandler struct {
	service Lookuper
	store   HistoryStore
	cache   Pinger
	logger  *slog.Logger
}

func NewWeatherHandler(service Lookuper, store HistoryStore, cache Pinger, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{
		service: service,
		store:   store,
		cache:   cache,
		logger:  logger,
	}
}

// GetWeather - один цикл запрос-показ для города
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(mux.Vars(r)["city"])

	h.logger.Info("Запрос погоды", "city", city, "method", r.Method)

	l := h.service.Lookup(r.Context(), city)
	if l.Outcome != nil {
		sendError(w, outcomeStatus(*l.Outcome), "Не удалось получить погоду", l.Outcome)
		return
	}

	sendJSON(w, http.StatusOK, l)
}

// GetHistory возвращает последние запросы по городу
func (h *WeatherHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(mux.Vars(r)["city"])

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			sendError(w, http.StatusBadRequest, "Неверный параметр limit", nil)
			return
		}
		limit = n
	}

	lookups, err := h.store.Recent(r.Context(), city, limit)
	if err != nil {
		h.logger.Error("Ошибка чтения истории из БД", "city", city, "error", err)
		sendError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера", nil)
		return
	}
	if lookups == nil {
		lookups = []model.Lookup{}
	}

	sendJSON(w, http.StatusOK, model.HistoryResponse{
		City:    city,
		Lookups: lookups,
		Total:   len(lookups),
	})
}

// GetAllCities возвращает список всех городов из истории
func (h *WeatherHandler) GetAllCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.store.Cities(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения городов из БД", "error", err)
		sendError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера", nil)
		return
	}

	sendJSON(w, http.StatusOK, model.CitiesResponse{
		Cities: cities,
		Total:  len(cities),
	})
}

// HealthCheck проверяет доступность сервисов
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	// Проверка БД
	if err := h.store.Ping(ctx); err != nil {
		health["database"] = "unhealthy"
		health["status"] = "degraded"
		h.logger.Error("Health check: DB недоступна", "error", err)
	} else {
		health["database"] = "healthy"
	}

	// Проверка Redis
	if err := h.cache.Ping(ctx); err != nil {
		health["redis"] = "unhealthy"
		health["status"] = "degraded"
		h.logger.Error("Health check: Redis недоступен", "error", err)
	} else {
		health["redis"] = "healthy"
	}

	status := http.StatusOK
	if health["status"] == "degraded" {
		status = http.StatusServiceUnavailable
	}

	sendJSON(w, status, health)
}

// outcomeStatus: ошибки ввода отдаем как есть, остальное - проблема апстрима
func outcomeStatus(o model.Outcome) int {
	switch o.Kind {
	case model.KindHTTPStatus:
		switch o.Status {
		case http.StatusBadRequest, http.StatusNotFound:
			return o.Status
		}
		return http.StatusBadGateway
	case model.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// Вспомогательные функции
func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, errorMsg string, outcome *model.Outcome) {
	response := model.ErrorResponse{
		Error:   errorMsg,
		Outcome: outcome,
	}
	if outcome != nil {
		response.Message = outcome.Message
	}

	sendJSON(w, status, response)
}
