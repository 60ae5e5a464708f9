// Command gate-server runs an HTTP API behind the JWT gate. It validates
// Microsoft Entra ID access tokens and serves a health probe, Prometheus
// metrics, a caller identity endpoint and a small calculator tool.
//
// Configuration comes from an optional YAML file and the environment:
//
//	AZURE_TENANT_ID=... AZURE_CLIENT_ID=... gate-server -config gate.yaml
//
// ENABLE_AUTH=false turns authentication off for local development. Every
// request is then served as a fixed development user.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	jwtgate "github.com/entragate/go-jwt-gate"
	"github.com/entragate/go-jwt-gate/config"
)

const serviceName = "jwt-gate"

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Gate server stopped")
	}
}

func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := jwtgate.NewPrometheusMetrics(registry)

	gate, err := newGate(ctx, cfg, log, metrics)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(gate, registry, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !cfg.Auth.Enabled {
		log.Warn("Authentication is DISABLED. Every request is served as the development user. Do not run this configuration in production.")
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":           cfg.Server.Addr,
			"authentication": authState(cfg.Auth.Enabled),
		}).Info("Gate server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func authState(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
