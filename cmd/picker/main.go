package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"orderqueue/pkg/client"
	"orderqueue/pkg/config"
	"orderqueue/pkg/localstore"
	"orderqueue/pkg/logger"
	"orderqueue/pkg/metrics"
	"orderqueue/pkg/syncer"
)

func main() {
	var cfgPaths, serverURL string
	flag.StringVar(&cfgPaths, "c", "", "config file path (supports: a.yml,b.yml)")
	flag.StringVar(&serverURL, "server", "", "order store URL, overrides client.server_url")
	flag.Parse()

	cfg, err := config.Load(cfgPaths)
	if err != nil {
		logger.New(os.Stderr, logger.LevelInfo, "picker", nil).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}
	if serverURL != "" {
		cfg.Client.ServerURL = serverURL
	}
	log := logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel), "picker", nil)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "picker stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	if cfg.Client.MetricsAddr != "" {
		metrics.RegisterClient(prometheus.DefaultRegisterer)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Client.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn(ctx, "metrics server", "error", err)
			}
		}()
	}

	remote := client.New(cfg.Client.ServerURL, cfg.Client.RequestTimeout)
	monitor := syncer.NewMonitor(remote, log)
	queue := syncer.NewQueue(gatedRemote{next: remote, up: monitor.NetworkUp}, cache, log)
	if err := queue.Load(ctx); err != nil {
		return err
	}
	s := syncer.New(queue, monitor, log, syncer.Options{
		SyncInterval:   cfg.Client.SyncInterval,
		HealthInterval: cfg.Client.HealthInterval,
	})
	s.Start(ctx)
	defer s.Stop()

	return newREPL(queue, monitor, os.Stdout).Run(ctx, os.Stdin)
}

func openCache(ctx context.Context, cfg *config.Config) (localstore.Store, func(), error) {
	switch cfg.Client.Cache {
	case "memory":
		return localstore.NewMemory(), func() {}, nil
	case "redis":
		cli := redis.NewClient(&redis.Options{
			Addr:     cfg.Client.RedisAddr,
			Password: cfg.Client.RedisPassword,
			DB:       cfg.Client.RedisDB,
		})
		if err := cli.Ping(ctx).Err(); err != nil {
			cli.Close()
			return nil, nil, err
		}
		r := localstore.NewRedis(cli, cfg.Client.RedisPrefix)
		return r, func() { r.Close() }, nil
	default:
		f, err := localstore.OpenFile(cfg.Client.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	}
}
