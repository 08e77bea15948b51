package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/gometeo/cityweather/internal/api/handlers"
	"github.com/gometeo/cityweather/internal/metrics"
	"github.com/gometeo/cityweather/internal/model"
)

func NewRouter(h *handlers.WeatherHandler, m *metrics.Recorder, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()

	// API маршруты
	api := router.PathPrefix("/api/v1").Subrouter()

	// Weather endpoints
	api.HandleFunc("/weather/{city}", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/history/{city}", h.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/cities", h.GetAllCities).Methods(http.MethodGet)

	// Health check
	api.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	// Middleware
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware(m))

	// router.Use не срабатывает для 404/405, их оборачиваем отдельно
	unmatched := func(h http.HandlerFunc) http.Handler {
		return loggingMiddleware(logger)(metricsMiddleware(m)(h))
	}
	router.NotFoundHandler = unmatched(func(w http.ResponseWriter, _ *http.Request) {
		sendStatus(w, http.StatusNotFound)
	})
	router.MethodNotAllowedHandler = unmatched(func(w http.ResponseWriter, _ *http.Request) {
		sendStatus(w, http.StatusMethodNotAllowed)
	})

	return router
}

func sendStatus(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: http.StatusText(status)})
}

// Middleware для логирования
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("HTTP запрос",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// Метка route - шаблон пути, а не сам путь, чтобы города не раздували кардинальность
func metricsMiddleware(m *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.Request(route, r.Method, strconv.Itoa(rw.status))
		})
	}
}

// Кастомный ResponseWriter для отслеживания статуса
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
