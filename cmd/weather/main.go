// Command weather - терминальный фронтенд: ввел город, получил температуру,
// эмодзи и описание. Один запрос за раз, следующий ввод только после показа.
//
//	weather London        # один запрос
//	weather               # интерактивный режим, выход по Ctrl+D
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gometeo/cityweather/internal/config"
	"github.com/gometeo/cityweather/internal/logging"
	"github.com/gometeo/cityweather/internal/model"
	"github.com/gometeo/cityweather/internal/owm"
	"github.com/gometeo/cityweather/internal/weather"
)

const prompt = "Enter the City: "

func main() {
	os.Exit(start(os.Args[1:]))
}

// start возвращает код выхода, чтобы отложенные вызовы успели отработать до os.Exit
func start(args []string) int {
	cfg := config.Load()
	// stdout только под погоду, логи в stderr
	logger := logging.New(cfg, os.Stderr)

	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY не задан, сервис ответит 401")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := owm.New(cfg.OpenWeatherAPIKey, owm.WithBaseURL(cfg.OpenWeatherBaseURL))
	svc := weather.NewService(client, logger)

	if len(args) > 0 {
		return lookupOnce(ctx, svc, strings.Join(args, " "), os.Stdout)
	}

	run(ctx, svc, os.Stdin, os.Stdout)
	return 0
}

type lookuper interface {
	Lookup(ctx context.Context, city string) model.Lookup
}

// lookupOnce - режим с городом в аргументах; 1, если погоду показать не удалось
func lookupOnce(ctx context.Context, svc lookuper, city string, out io.Writer) int {
	l := svc.Lookup(ctx, city)
	render(out, l.View)
	if l.Outcome != nil {
		return 1
	}
	return 0
}

// run читает города построчно до EOF или отмены ctx
func run(ctx context.Context, svc lookuper, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		if ctx.Err() != nil {
			return
		}

		l := svc.Lookup(ctx, scanner.Text())
		render(out, l.View)
	}
}

func render(w io.Writer, v model.View) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, v.Temperature)
	if v.Glyph != "" {
		fmt.Fprintln(w, v.Glyph)
	}
	if v.Description != "" {
		fmt.Fprintln(w, v.Description)
	}
	fmt.Fprintln(w)
}
