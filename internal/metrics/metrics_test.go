package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.Lookup("ok")
	r.Lookup("ok")
	r.Lookup("http_status")
	r.CacheHit()
	r.CacheMiss()
	r.Request("/api/v1/weather/{city}", http.MethodGet, "200")

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}

	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{
		`cityweather_lookups_total{outcome="ok"} 2`,
		`cityweather_lookups_total{outcome="http_status"} 1`,
		`cityweather_cache_total{result="hit"} 1`,
		`cityweather_http_requests_total{method="GET",route="/api/v1/weather/{city}",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q", want)
		}
	}
}
