package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gometeo/cityweather/internal/model"
	_ "github.com/jackc/pgx/v5/stdlib" // Регистрируем драйвер pgx
)

const maxRecent = 100

// LookupStorage - история запросов погоды, пишет ее aggregator из Kafka
type LookupStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(dsn string, logger *slog.Logger) (*LookupStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Автоматическая миграция (создание таблицы) для простоты.
	// Город приходит от пользователя без проверки длины, поэтому TEXT.
	query := `
	CREATE TABLE IF NOT EXISTS lookups (
		id UUID PRIMARY KEY,
		city TEXT NOT NULL,
		city_key TEXT NOT NULL,
		succeeded BOOLEAN NOT NULL,
		temperature TEXT,
		glyph VARCHAR(16),
		description TEXT,
		outcome_kind VARCHAR(32),
		outcome_status INTEGER,
		temp_kelvin DOUBLE PRECISION,
		condition_code INTEGER,
		cached BOOLEAN NOT NULL DEFAULT FALSE,
		requested_at TIMESTAMPTZ NOT NULL
	);
	ALTER TABLE lookups
		ALTER COLUMN city TYPE TEXT,
		ALTER COLUMN city_key TYPE TEXT;
	CREATE INDEX IF NOT EXISTS lookups_city_key_requested_at
		ON lookups (city_key, requested_at DESC);`

	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания таблицы: %w", err)
	}

	return &LookupStorage{db: db, logger: logger}, nil
}

func (s *LookupStorage) Close() {
	s.db.Close()
}

func (s *LookupStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save записывает событие. Kafka может доставить его повторно,
// поэтому конфликт по id игнорируется.
func (s *LookupStorage) Save(ctx context.Context, l model.Lookup) error {
	query := `
		INSERT INTO lookups (id, city, city_key, succeeded, temperature, glyph, description,
			outcome_kind, outcome_status, temp_kelvin, condition_code, cached, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING;
	`

	var kind sql.NullString
	var status sql.NullInt64
	if l.Outcome != nil {
		kind = sql.NullString{String: string(l.Outcome.Kind), Valid: true}
		status = sql.NullInt64{Int64: int64(l.Outcome.Status), Valid: l.Outcome.Status != 0}
	}

	_, err := s.db.ExecContext(ctx, query,
		l.ID,
		l.City,
		model.NormalizeCity(l.City),
		l.Succeeded(),
		l.View.Temperature,
		l.View.Glyph,
		l.View.Description,
		kind,
		status,
		l.TempKelvin,
		l.ConditionCode,
		l.Cached,
		l.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения запроса для %s: %w", l.City, err)
	}

	return nil
}

// Recent возвращает последние запросы по городу, новые первыми
func (s *LookupStorage) Recent(ctx context.Context, city string, limit int) ([]model.Lookup, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}

	query := `
		SELECT id, city, succeeded, temperature, glyph, description,
			outcome_kind, outcome_status, temp_kelvin, condition_code, cached, requested_at
		FROM lookups
		WHERE city_key = $1
		ORDER BY requested_at DESC
		LIMIT $2;
	`

	rows, err := s.db.QueryContext(ctx, query, model.NormalizeCity(city), limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории для %s: %w", city, err)
	}
	defer rows.Close()

	var out []model.Lookup
	for rows.Next() {
		var (
			l           model.Lookup
			succeeded   bool
			temperature sql.NullString
			glyph       sql.NullString
			description sql.NullString
			kind        sql.NullString
			status      sql.NullInt64
			kelvin      sql.NullFloat64
			code        sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.City, &succeeded, &temperature, &glyph, &description,
			&kind, &status, &kelvin, &code, &l.Cached, &l.RequestedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки: %w", err)
		}

		l.View = model.View{
			Temperature: temperature.String,
			Glyph:       glyph.String,
			Description: description.String,
			Error:       !succeeded,
		}
		l.TempKelvin = kelvin.Float64
		l.ConditionCode = int(code.Int64)
		if !succeeded {
			l.Outcome = &model.Outcome{
				Kind:    model.OutcomeKind(kind.String),
				Status:  int(status.Int64),
				Message: temperature.String,
			}
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения истории: %w", err)
	}

	return out, nil
}

// Cities - все города, по которым были запросы
func (s *LookupStorage) Cities(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT ON (city_key) city
		FROM lookups
		ORDER BY city_key, requested_at DESC;
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения городов: %w", err)
	}
	defer rows.Close()

	cities := []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}
