// Package weather связывает клиента OpenWeatherMap и отображение в один
// цикл запрос-показ. Кэш, события и метрики подключаются опциями; без них
// остается голый цикл fetch -> describe.
package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/gometeo/cityweather/internal/display"
	"github.com/gometeo/cityweather/internal/model"
	"github.com/gometeo/cityweather/internal/owm"
)

type Fetcher interface {
	Fetch(ctx context.Context, city string) (model.Report, error)
}

type ReportCache interface {
	Get(ctx context.Context, city string) (*model.Report, error)
	Set(ctx context.Context, city string, report model.Report) error
}

type Publisher interface {
	Publish(ctx context.Context, l model.Lookup) error
}

type Metrics interface {
	Lookup(outcome string)
	CacheHit()
	CacheMiss()
}

// Верхняя граница для общего вызова API, отмена клиентов на него не влияет
const sharedFetchTimeout = 30 * time.Second

type Option func(*Service)

func WithCache(c ReportCache) Option        { return func(s *Service) { s.cache = c } }
func WithPublisher(p Publisher) Option      { return func(s *Service) { s.publisher = p } }
func WithMetrics(m Metrics) Option          { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

type Service struct {
	fetcher   Fetcher
	cache     ReportCache
	publisher Publisher
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time

	// Одновременные запросы одного города делят один вызов API
	group singleflight.Group
}

func NewService(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{fetcher: fetcher, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type fetchResult struct {
	report model.Report
	cached bool
}

// Lookup выполняет один цикл и всегда возвращает что показать.
// Ошибки кэша и Kafka только логируются и на результат не влияют.
func (s *Service) Lookup(ctx context.Context, city string) model.Lookup {
	start := s.now()
	key := model.NormalizeCity(city)

	// Общий вызов не привязан к отмене первого клиента: уход одного
	// не должен ронять остальных. Каждый ждет только свой ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return s.fetch(fctx, city)
	})

	var (
		v      any
		err    error
		shared bool
	)
	select {
	case res := <-ch:
		v, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}

	l := model.Lookup{
		ID:          uuid.NewString(),
		City:        city,
		RequestedAt: start.UTC(),
	}

	if err != nil {
		outcome := owm.Classify(err)
		l.Outcome = &outcome
		l.View = display.PresentError(outcome)
		s.logger.Warn("Запрос погоды не удался",
			"city", city,
			"kind", outcome.Kind,
			"status", outcome.Status,
			"error", err)
		s.count(string(outcome.Kind))
	} else {
		res := v.(fetchResult)
		l.City = res.report.City
		l.TempKelvin = res.report.TempKelvin
		l.ConditionCode = res.report.ConditionCode
		l.Cached = res.cached
		l.View = display.Present(res.report, s.now())
		s.logger.Info("Погода получена",
			"city", l.City,
			"code", l.ConditionCode,
			"cached", l.Cached,
			"shared", shared,
			"duration_ms", s.now().Sub(start).Milliseconds())
		s.count("ok")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, l); err != nil {
			s.logger.Warn("Не удалось отправить событие", "id", l.ID, "city", l.City, "error", err)
		}
	}
	return l
}

func (s *Service) fetch(ctx context.Context, city string) (fetchResult, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, city)
		if err != nil {
			// Продолжаем - кэш не критичен
			s.logger.Error("Ошибка чтения из кэша", "city", city, "error", err)
		}
		if cached != nil {
			s.cacheResult(true)
			return fetchResult{report: *cached, cached: true}, nil
		}
		s.cacheResult(false)
	}

	report, err := s.fetcher.Fetch(ctx, city)
	if err != nil {
		return fetchResult{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, city, report); err != nil {
			s.logger.Warn("Не удалось сохранить в кэш", "city", city, "error", err)
		}
	}
	return fetchResult{report: report}, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.Lookup(outcome)
	}
}

func (s *Service) cacheResult(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHit()
	} else {
		s.metrics.CacheMiss()
	}
}
