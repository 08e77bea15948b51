package model

import (
	"strings"
	"time"
)

// Query - ввод пользователя, город не проверяется локально
type Query struct {
	City string `json:"city"`
}

// NormalizeCity - общий ключ для "London", " london " и т.п.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}

// Report - успешный ответ OpenWeatherMap, только нужные поля
type Report struct {
	City          string    `json:"city"`
	TempKelvin    float64   `json:"temp_kelvin"`
	ConditionCode int       `json:"condition_code"`
	Sunrise       time.Time `json:"sunrise"`
	Sunset        time.Time `json:"sunset"`
	Description   string    `json:"description"`
}

// OutcomeKind - категория неудачного запроса
type OutcomeKind string

const (
	KindHTTPStatus       OutcomeKind = "http_status"
	KindConnection       OutcomeKind = "connection"
	KindTimeout          OutcomeKind = "timeout"
	KindTooManyRedirects OutcomeKind = "too_many_redirects"
	KindRequest          OutcomeKind = "request"
)

// Outcome - классифицированная ошибка, готовая к показу
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Status  int         `json:"status,omitempty"`
	Message string      `json:"message"`
}

// View - то, что отрисовывает фронтенд (три области вывода)
type View struct {
	Temperature string `json:"temperature"`
	Glyph       string `json:"glyph"`
	Description string `json:"description"`
	Error       bool   `json:"error,omitempty"`
}

// Lookup - событие об одном завершенном запросе, летает через Kafka
type Lookup struct {
	ID            string    `json:"id"`
	City          string    `json:"city"`
	View          View      `json:"view"`
	Outcome       *Outcome  `json:"outcome,omitempty"`
	TempKelvin    float64   `json:"temp_kelvin,omitempty"`
	ConditionCode int       `json:"condition_code,omitempty"`
	Cached        bool      `json:"cached"`
	RequestedAt   time.Time `json:"requested_at"`
}

// Succeeded сообщает, закончился ли запрос погодой, а не ошибкой
func (l Lookup) Succeeded() bool {
	return l.Outcome == nil
}

type HistoryResponse struct {
	City    string   `json:"city"`
	Lookups []Lookup `json:"lookups"`
	Total   int      `json:"total"`
}

type CitiesResponse struct {
	Cities []string `json:"cities"`
	Total  int      `json:"total"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
}
