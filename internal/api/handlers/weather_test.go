package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/gometeo/cityweather/internal/model"
)

type fakeLookuper struct {
	got    string
	result model.Lookup
}

func (f *fakeLookuper) Lookup(_ context.Context, city string) model.Lookup {
	f.got = city
	return f.result
}

type fakeStore struct {
	lookups  []model.Lookup
	cities   []string
	err      error
	pingErr  error
	gotLimit int
}

func (f *fakeStore) Recent(_ context.Context, _ string, limit int) ([]model.Lookup, error) {
	f.gotLimit = limit
	return f.lookups, f.err
}

func (f *fakeStore) Cities(context.Context) ([]string, error) { return f.cities, f.err }
func (f *fakeStore) Ping(context.Context) error               { return f.pingErr }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newHandler(l Lookuper, s HistoryStore, p Pinger) *WeatherHandler {
	return NewWeatherHandler(l, s, p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func withCity(r *http.Request, city string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"city": city})
}

func TestGetWeather_OK(t *testing.T) {
	lk := &fakeLookuper{result: model.Lookup{
		ID:   "1",
		City: "London",
		View: model.View{Temperature: "80°F", Glyph: "☀️", Description: "clear sky"},
	}}
	h := newHandler(lk, &fakeStore{}, fakePinger{})

	rr := httptest.NewRecorder()
	h.GetWeather(rr, withCity(httptest.NewRequest(http.MethodGet, "/api/v1/weather/London", nil), " London "))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if lk.got != "London" {
		t.Fatalf("lookup city %q", lk.got)
	}
	var got model.Lookup
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.View.Temperature != "80°F" || got.View.Glyph != "☀️" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetWeather_Outcomes(t *testing.T) {
	cases := []struct {
		name    string
		outcome model.Outcome
		want    int
	}{
		{"not found", model.Outcome{Kind: model.KindHTTPStatus, Status: 404, Message: "Not found:\nCity not found"}, http.StatusNotFound},
		{"bad request", model.Outcome{Kind: model.KindHTTPStatus, Status: 400}, http.StatusBadRequest},
		{"unauthorized", model.Outcome{Kind: model.KindHTTPStatus, Status: 401}, http.StatusBadGateway},
		{"upstream 503", model.Outcome{Kind: model.KindHTTPStatus, Status: 503}, http.StatusBadGateway},
		{"timeout", model.Outcome{Kind: model.KindTimeout}, http.StatusGatewayTimeout},
		{"connection", model.Outcome{Kind: model.KindConnection}, http.StatusBadGateway},
		{"redirects", model.Outcome{Kind: model.KindTooManyRedirects}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := tc.outcome
			h := newHandler(&fakeLookuper{result: model.Lookup{Outcome: &o}}, &fakeStore{}, fakePinger{})

			rr := httptest.NewRecorder()
			h.GetWeather(rr, withCity(httptest.NewRequest(http.MethodGet, "/", nil), "x"))
			if rr.Code != tc.want {
				t.Fatalf("got %d, want %d", rr.Code, tc.want)
			}
			var resp model.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Outcome == nil || resp.Outcome.Kind != o.Kind || resp.Message != o.Message {
				t.Fatalf("got %+v", resp)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	store := &fakeStore{lookups: []model.Lookup{{ID: "a"}, {ID: "b"}}}
	h := newHandler(&fakeLookuper{}, store, fakePinger{})

	rr := httptest.NewRecorder()
	h.GetHistory(rr, withCity(httptest.NewRequest(http.MethodGet, "/api/v1/history/london?limit=5", nil), "london"))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if store.gotLimit != 5 {
		t.Fatalf("limit %d", store.gotLimit)
	}
	var resp model.HistoryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.City != "london" {
		t.Fatalf("got %+v", resp)
	}
}

func TestGetHistory_BadLimit(t *testing.T) {
	h := newHandler(&fakeLookuper{}, &fakeStore{}, fakePinger{})

	for _, q := range []string{"limit=0", "limit=abc", "limit=1000"} {
		rr := httptest.NewRecorder()
		h.GetHistory(rr, withCity(httptest.NewRequest(http.MethodGet, "/api/v1/history/london?"+q, nil), "london"))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d", q, rr.Code)
		}
	}
}

func TestGetHistory_StoreError(t *testing.T) {
	h := newHandler(&fakeLookuper{}, &fakeStore{err: errors.New("db down")}, fakePinger{})

	rr := httptest.NewRecorder()
	h.GetHistory(rr, withCity(httptest.NewRequest(http.MethodGet, "/api/v1/history/london", nil), "london"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestGetAllCities(t *testing.T) {
	h := newHandler(&fakeLookuper{}, &fakeStore{cities: []string{"London", "Paris"}}, fakePinger{})

	rr := httptest.NewRecorder()
	h.GetAllCities(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cities", nil))
	var resp model.CitiesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusOK || resp.Total != 2 {
		t.Fatalf("got %d %+v", rr.Code, resp)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newHandler(&fakeLookuper{}, &fakeStore{}, fakePinger{})
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthy: got %d", rr.Code)
	}

	h = newHandler(&fakeLookuper{}, &fakeStore{}, fakePinger{err: errors.New("redis down")})
	rr = httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded: got %d", rr.Code)
	}
	var health map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health["redis"] != "unhealthy" || health["database"] != "healthy" {
		t.Fatalf("got %v", health)
	}
}
