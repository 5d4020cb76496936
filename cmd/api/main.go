package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "orderqueue/docs"
	"orderqueue/pkg/api"
	"orderqueue/pkg/config"
	"orderqueue/pkg/logger"
	"orderqueue/pkg/metrics"
	"orderqueue/pkg/order"
	"orderqueue/pkg/order/memory"
	pg "orderqueue/pkg/order/postgres"
	"orderqueue/pkg/otel"
)

// @title Order Queue API
// @version 1.0
// @description Order store for the fulfillment checklist
// @host localhost:5000
// @BasePath /
func main() {
	var cfgPaths string
	flag.StringVar(&cfgPaths, "c", "", "config file path (supports: a.yml,b.yml)")
	flag.Parse()

	cfg, err := config.Load(cfgPaths)
	if err != nil {
		logger.New(os.Stderr, logger.LevelInfo, "orderqueue", nil).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), "orderqueue", otel.GetTraceID)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "shutdown", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	tp, shutdown, err := otel.InitTracing(log, otel.Config{
		ServiceName: "orderqueue",
		Host:        cfg.Tracing.Host,
		Probability: cfg.Tracing.Probability,
	})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	r := api.New(repo, log, tp.Tracer("orderqueue")).Router()
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	if cfg.Metrics.Enabled {
		metrics.RegisterServer(prometheus.DefaultRegisterer)
		r.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	serverErrors := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdownSig := make(chan os.Signal, 1)
	signal.Notify(shutdownSig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-shutdownSig:
		log.Info(ctx, "shutdown started", "signal", sig.String())
		sctx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			srv.Close()
			return err
		}
		return nil
	}
}

func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (order.Repository, func(), error) {
	if cfg.Store.Driver != "postgres" {
		return memory.New(nil), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	repo := pg.New(db, nil)
	if err := repo.Init(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info(ctx, "postgres store ready")
	return repo, func() { db.Close() }, nil
}
