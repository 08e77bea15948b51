package logging

import (
	"io"
	"log/slog"

	"github.com/gometeo/cityweather/internal/config"
)

// New - текстовый лог для разработки, JSON для продакшена
func New(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Production() {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
