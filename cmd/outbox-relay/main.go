package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeMC777/marketplace/internal/config"
	"github.com/MikeMC777/marketplace/internal/events"
	"github.com/MikeMC777/marketplace/internal/metrics"
	"github.com/MikeMC777/marketplace/internal/store"
)

// newPublisher picks Kafka when brokers are configured and falls back to
// logging the events otherwise.
func newPublisher(cfg config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Printf("[events] no KAFKA_BROKERS, events are only logged")
		return events.LogPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers)
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	if cfg.Store != "postgres" {
		log.Printf("[store] outbox-relay needs STORE=postgres, got %q", cfg.Store)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Printf("[store] %v", err)
		return 1
	}
	defer pool.Close()
	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		log.Printf("[store] migrate: %v", err)
		return 1
	}

	pub := newPublisher(cfg)
	defer pub.Close()

	m := metrics.New("outbox_relay")
	relay := events.NewRelay(pg, pub,
		events.WithBatch(cfg.OutboxBatch),
		events.WithInterval(cfg.OutboxInterval),
		events.WithObserver(m.ObserveOutbox))

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.Ping(r.Context()); err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("outbox-relay metrics on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("[events] relaying to topic %s every %s", cfg.KafkaTopic, cfg.OutboxInterval)
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Printf("outbox-relay: %v", err)
		return 1
	}
	return 0
}
