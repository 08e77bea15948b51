package owm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/gometeo/cityweather/internal/model"
)

// ErrTooManyRedirects возвращается из CheckRedirect после maxRedirects переходов
var ErrTooManyRedirects = errors.New("too many redirects")

const (
	msgConnection = "Connection Error:\nCheck your internet connection"
	msgTimeout    = "Timeout error:\nThe request timed out"
	msgRedirects  = "Too many redirects:\nCheck the URL"
)

// Сообщения для известных HTTP-статусов; остальные идут через defaultStatusMessage
var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad request:\nPlease check your input",
	http.StatusUnauthorized:        "Unauthorized:\nInvalid API key",
	http.StatusForbidden:           "Forbidden:\nAccess is denied",
	http.StatusNotFound:            "Not found:\nCity not found",
	http.StatusInternalServerError: "Internal server Error:\nPlease try again later",
	http.StatusBadGateway:          "Bad Gateway:\nInvalid response from the server",
	http.StatusServiceUnavailable:  "Service Unavailable:\nServer is down",
	http.StatusGatewayTimeout:      "Gateway timeout:\nNo response from the server",
}

func defaultStatusMessage(status int) string {
	return fmt.Sprintf("HTTP error occurred:\n%d %s", status, http.StatusText(status))
}

// StatusMessage возвращает текст для показа пользователю по HTTP-статусу
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return defaultStatusMessage(status)
}

// FetchError - любая неудача Fetch. Kind и Message уже готовы к показу.
type FetchError struct {
	Kind    model.OutcomeKind
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("owm %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("owm %s: status %d", e.Kind, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Outcome() model.Outcome {
	return model.Outcome{Kind: e.Kind, Status: e.Status, Message: e.Message}
}

// Classify превращает ошибку Fetch (или любую другую) в Outcome для показа.
// Для nil возвращается нулевой Outcome.
func Classify(err error) model.Outcome {
	if err == nil {
		return model.Outcome{}
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Outcome()
	}
	return transportError(err).Outcome()
}

func statusError(status int, body string) *FetchError {
	var err error
	if body != "" {
		err = fmt.Errorf("status %d: %s", status, body)
	}
	return &FetchError{
		Kind:    model.KindHTTPStatus,
		Status:  status,
		Message: StatusMessage(status),
		Err:     err,
	}
}

func requestError(err error) *FetchError {
	return &FetchError{
		Kind:    model.KindRequest,
		Message: "Request Error:\n" + err.Error(),
		Err:     err,
	}
}

// transportError разбирает ошибку http.Client.Do. Порядок важен:
// таймаут dial тоже *net.OpError.
func transportError(err error) *FetchError {
	err = redact(err)

	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return &FetchError{Kind: model.KindTooManyRedirects, Message: msgRedirects, Err: err}
	case isTimeout(err):
		return &FetchError{Kind: model.KindTimeout, Message: msgTimeout, Err: err}
	case isConnection(err):
		return &FetchError{Kind: model.KindConnection, Message: msgConnection, Err: err}
	default:
		return requestError(err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isConnection(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// redact убирает appid из URL внутри *url.Error, чтобы ключ не попал в лог и на экран
func redact(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	ue.URL = redactURL(ue.URL)
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		// Не парсится - режем query целиком
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	q := u.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
