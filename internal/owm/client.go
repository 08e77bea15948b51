package owm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gometeo/cityweather/internal/model"
)

// DefaultBaseURL - эндпоинт текущей погоды OpenWeatherMap
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

const maxRedirects = 30

type Option func(*Client)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New создает клиента. Пустой ключ допустим: сервис ответит 401,
// и это станет обычным Outcome.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}

	// Таймаут не задаем: одна попытка, ограничение только через ctx
	hc := &http.Client{}
	if c.httpClient != nil {
		copied := *c.httpClient
		hc = &copied
	}
	if hc.CheckRedirect == nil {
		hc.CheckRedirect = limitRedirects
	}
	c.httpClient = hc
	return c
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return ErrTooManyRedirects
	}
	return nil
}

// Fetch делает ровно один GET за текущей погодой. Любая неудача
// возвращается как *FetchError.
func (c *Client) Fetch(ctx context.Context, city string) (model.Report, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return model.Report{}, requestError(fmt.Errorf("parse base url: %w", err))
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Report{}, requestError(redact(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Report{}, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return model.Report{}, statusError(resp.StatusCode, string(bytes.TrimSpace(b)))
	}
	if resp.StatusCode != http.StatusOK {
		return model.Report{}, requestError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return model.Report{}, requestError(fmt.Errorf("decode response: %w", err))
	}
	return p.report(city)
}

// Ответ /data/2.5/weather. cod приходит то числом, то строкой.
type payload struct {
	Cod     flexibleCode `json:"cod"`
	Message string       `json:"message"`
	Name    string       `json:"name"`
	Main    struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"weather"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

func (p payload) report(city string) (model.Report, error) {
	if int(p.Cod) != http.StatusOK {
		err := fmt.Errorf("response cod %d", int(p.Cod))
		if p.Message != "" {
			err = fmt.Errorf("response cod %d: %s", int(p.Cod), p.Message)
		}
		return model.Report{}, requestError(err)
	}
	if len(p.Weather) == 0 {
		return model.Report{}, requestError(errors.New("response has no weather entries"))
	}

	name := p.Name
	if name == "" {
		name = city
	}
	return model.Report{
		City:          name,
		TempKelvin:    p.Main.Temp,
		ConditionCode: p.Weather[0].ID,
		Sunrise:       time.Unix(p.Sys.Sunrise, 0).UTC(),
		Sunset:        time.Unix(p.Sys.Sunset, 0).UTC(),
		Description:   p.Weather[0].Description,
	}, nil
}

type flexibleCode int

func (f *flexibleCode) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexibleCode(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("cod: %w", err)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("cod %q: %w", s, err)
	}
	*f = flexibleCode(n)
	return nil
}
