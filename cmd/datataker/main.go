package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pico-collectors/datacollect/internal/collector"
	"github.com/pico-collectors/datacollect/internal/logging"
	"github.com/pico-collectors/datacollect/internal/observability"
	"github.com/pico-collectors/datacollect/internal/protocols/lines"
)

func main() {
	logging.ConfigureRuntime()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: datataker <config.toml>")
		os.Exit(2)
	}

	cfg, err := loadRunnerConfig(os.Args[1])
	if err != nil {
		log.Error().Err(err).Msg("datataker startup failed")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("datataker terminated")
		os.Exit(1)
	}
}

func run(cfg runnerConfig) error {
	proto, err := lines.New(&recordLogger{}, cfg.Lines)
	if err != nil {
		return err
	}
	col, err := collector.New(proto, cfg.Collector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		col.Stop()
	}()

	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr)
	}

	log.Info().Str("producer", cfg.Collector.Address).Msg("started collecting data")
	return col.Run()
}

func serveMetrics(addr string) {
	observability.RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics endpoint unavailable")
		}
	}()
}

// recordLogger is the default data handler: it emits each collected
// record to the process log. Real deployments replace it with a
// handler that persists or forwards the records.
type recordLogger struct{}

func (recordLogger) Process(item any) error {
	log.Info().Interface("record", item).Msg("record collected")
	return nil
}
