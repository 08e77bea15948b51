package owm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gometeo/cityweather/internal/model"
)

const londonBody = `{
	"cod": 200,
	"name": "London",
	"main": {"temp": 300.0},
	"weather": [{"id": 800, "main": "Clear", "description": "clear sky"}],
	"sys": {"sunrise": 1700000000, "sunset": 1700040000}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New("test-key", WithBaseURL(ts.URL+"/data/2.5/weather"))
}

func fetchOutcome(t *testing.T, c *Client) model.Outcome {
	t.Helper()
	_, err := c.Fetch(context.Background(), "London")
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	return Classify(err)
}

func TestFetch_Success(t *testing.T) {
	var gotQuery, gotKey, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("appid")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, londonBody)
	})

	rep, err := c.Fetch(context.Background(), "New York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/data/2.5/weather" || gotQuery != "New York" || gotKey != "test-key" {
		t.Fatalf("bad request: path=%q q=%q appid=%q", gotPath, gotQuery, gotKey)
	}
	if rep.TempKelvin != 300.0 || rep.ConditionCode != 800 || rep.Description != "clear sky" {
		t.Fatalf("bad report: %+v", rep)
	}
	if rep.City != "London" {
		t.Fatalf("city: got %q", rep.City)
	}
	if !rep.Sunrise.Equal(time.Unix(1700000000, 0)) || !rep.Sunset.Equal(time.Unix(1700040000, 0)) {
		t.Fatalf("sun times: %v %v", rep.Sunrise, rep.Sunset)
	}
}

func TestFetch_CodAsString(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cod":"200","main":{"temp":273.15},"weather":[{"id":500,"description":"light rain"}],"sys":{}}`)
	})

	rep, err := c.Fetch(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.ConditionCode != 500 || rep.City != "Oslo" {
		t.Fatalf("bad report: %+v", rep)
	}
}

func TestFetch_StatusTable(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{400, "Bad request:\nPlease check your input"},
		{401, "Unauthorized:\nInvalid API key"},
		{403, "Forbidden:\nAccess is denied"},
		{404, "Not found:\nCity not found"},
		{500, "Internal server Error:\nPlease try again later"},
		{502, "Bad Gateway:\nInvalid response from the server"},
		{503, "Service Unavailable:\nServer is down"},
		{504, "Gateway timeout:\nNo response from the server"},
		{418, "HTTP error occurred:\n418 I'm a teapot"},
		{429, "HTTP error occurred:\n429 Too Many Requests"},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprintf(w, `{"cod":"%d","message":"nope"}`, tc.status)
			})

			out := fetchOutcome(t, c)
			if out.Kind != model.KindHTTPStatus || out.Status != tc.status {
				t.Fatalf("got %+v", out)
			}
			if out.Message != tc.want {
				t.Fatalf("message: got %q, want %q", out.Message, tc.want)
			}
		})
	}
}

func TestFetch_CityNotFoundAndUnauthorized(t *testing.T) {
	notFound := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	})
	if out := fetchOutcome(t, notFound); !strings.Contains(out.Message, "City not found") {
		t.Fatalf("got %+v", out)
	}

	unauthorized := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401}`, http.StatusUnauthorized)
	})
	if out := fetchOutcome(t, unauthorized); !strings.Contains(out.Message, "Invalid API key") {
		t.Fatalf("got %+v", out)
	}
}

func TestFetch_ConnectionFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	c := New("test-key", WithBaseURL(addr))
	out := fetchOutcome(t, c)
	if out.Kind != model.KindConnection {
		t.Fatalf("got %+v", out)
	}
	if out.Message != "Connection Error:\nCheck your internet connection" {
		t.Fatalf("message: %q", out.Message)
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	c := New("test-key", WithBaseURL(ts.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, "London")
	out := Classify(err)
	if out.Kind != model.KindTimeout || out.Message != "Timeout error:\nThe request timed out" {
		t.Fatalf("got %+v", out)
	}
}

func TestFetch_ClientTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	c := New("test-key", WithBaseURL(ts.URL), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	out := fetchOutcome(t, c)
	if out.Kind != model.KindTimeout {
		t.Fatalf("got %+v", out)
	}
}

func TestFetch_TooManyRedirects(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.String(), http.StatusFound)
	})

	out := fetchOutcome(t, c)
	if out.Kind != model.KindTooManyRedirects || out.Message != "Too many redirects:\nCheck the URL" {
		t.Fatalf("got %+v", out)
	}
	if int(hits.Load()) != maxRedirects {
		t.Fatalf("expected %d hits, got %d", maxRedirects, hits.Load())
	}
}

func TestFetch_GenericRequestErrors(t *testing.T) {
	cases := map[string]string{
		"bad json":   `{"cod":200,`,
		"cod 500":    `{"cod":500,"message":"internal"}`,
		"no weather": `{"cod":200,"main":{"temp":280},"weather":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})
			out := fetchOutcome(t, c)
			if out.Kind != model.KindRequest || !strings.HasPrefix(out.Message, "Request Error:\n") {
				t.Fatalf("got %+v", out)
			}
		})
	}
}

func TestFetch_ErrorDoesNotLeakKey(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	c := New("super-secret", WithBaseURL(addr))
	_, err := c.Fetch(context.Background(), "London")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "super-secret") || strings.Contains(Classify(err).Message, "super-secret") {
		t.Fatalf("api key leaked: %v", err)
	}
}

func TestClassify_ForeignErrors(t *testing.T) {
	if out := Classify(context.DeadlineExceeded); out.Kind != model.KindTimeout {
		t.Fatalf("deadline: got %+v", out)
	}
	if out := Classify(errors.New("boom")); out.Kind != model.KindRequest || out.Message != "Request Error:\nboom" {
		t.Fatalf("generic: got %+v", out)
	}
}

func TestClassify_NilIsZeroOutcome(t *testing.T) {
	if out := Classify(nil); out != (model.Outcome{}) {
		t.Fatalf("got %+v", out)
	}
}
