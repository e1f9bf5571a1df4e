package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-farmlink/internal/config"
	"github.com/ariefcatur/go-farmlink/internal/events"
	"github.com/ariefcatur/go-farmlink/internal/httpx"
	kafkax "github.com/ariefcatur/go-farmlink/internal/kafka"
	"github.com/ariefcatur/go-farmlink/internal/logging"
	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/ariefcatur/go-farmlink/internal/notify"
	"github.com/ariefcatur/go-farmlink/internal/persist"
	"github.com/ariefcatur/go-farmlink/internal/postgres"
	"github.com/ariefcatur/go-farmlink/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis serves the redis snapshot driver and the notification feeds.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
	}

	snap, closeSnap, err := openSnapshotter(ctx, cfg, rdb)
	if err != nil {
		log.Fatal("snapshot backend", zap.String("driver", cfg.SnapshotDriver), zap.Error(err))
	}
	defer closeSnap()

	opts := []market.Option{
		market.WithSnapshotter(snap),
		market.WithLogger(log.Named("store")),
		market.WithProducer(cfg.ServiceName),
	}
	if cfg.HashPasswords {
		opts = append(opts, market.WithCredentials(market.BcryptCredentials{}))
	}
	if cfg.StrictOrderFlow {
		opts = append(opts, market.WithStrictOrderFlow())
	}

	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, log.Named("producer"))
		prod.Start(ctx)
		opts = append(opts, market.WithEventSink(events.NewPublisher(prod, log.Named("events"))))
	} else {
		log.Info("KAFKA_BROKERS empty, event publishing disabled")
	}

	store := market.Open(ctx, opts...)

	router := httpx.NewRouter(log.Named("http"))
	h := &httpx.Handler{Store: store, Log: log}
	if rdb != nil {
		h.Feeds = &notify.Service{Redis: rdb, ServiceName: cfg.ServiceName, Log: log.Named("notify")}
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("snapshot", cfg.SnapshotDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error("server", zap.Error(err))
	}

	if err := store.Close(context.Background()); err != nil {
		log.Warn("final snapshot", zap.Error(err))
	}
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
}

// openSnapshotter returns the configured backend and a cleanup func.
func openSnapshotter(ctx context.Context, cfg config.Config, rdb *redis.Client) (market.Snapshotter, func(), error) {
	noop := func() {}
	switch cfg.SnapshotDriver {
	case "memory":
		return persist.NewMemory(), noop, nil
	case "file":
		return persist.NewFile(cfg.SnapshotDir, cfg.SnapshotKey), noop, nil
	case "redis":
		return persist.NewRedis(rdb, cfg.SnapshotKey), noop, nil
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return persist.NewPostgres(pool, cfg.SnapshotKey), pool.Close, nil
	case "mongo":
		client, err := persist.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return persist.NewMongo(client.Database(cfg.MongoDatabase), cfg.SnapshotKey), closeFn, nil
	}
	return nil, noop, fmt.Errorf("unknown snapshot driver %q", cfg.SnapshotDriver)
}
