package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder считает запросы погоды. Реестр свой, не глобальный.
type Recorder struct {
	registry *prometheus.Registry
	lookups  *prometheus.CounterVec
	cache    *prometheus.CounterVec
	requests *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cityweather_lookups_total",
				Help: "Weather lookups by outcome (ok or failure kind).",
			},
			[]string{"outcome"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cityweather_cache_total",
				Help: "Report cache lookups by result.",
			},
			[]string{"result"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cityweather_http_requests_total",
				Help: "HTTP requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
	}
	r.registry.MustRegister(
		r.lookups,
		r.cache,
		r.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Lookup: outcome "ok" или вид ошибки
func (r *Recorder) Lookup(outcome string) {
	r.lookups.WithLabelValues(outcome).Inc()
}

func (r *Recorder) CacheHit()  { r.cache.WithLabelValues("hit").Inc() }
func (r *Recorder) CacheMiss() { r.cache.WithLabelValues("miss").Inc() }

func (r *Recorder) Request(route, method, status string) {
	r.requests.WithLabelValues(route, method, status).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
