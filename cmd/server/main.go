package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fastclick/internal/config"
	"fastclick/internal/handler"
	"fastclick/internal/infra"
	"fastclick/internal/metrics"
	"fastclick/internal/realtime"
	"fastclick/internal/repository"
	"fastclick/internal/router"
	"fastclick/internal/service"
	"fastclick/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in development, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.TracingEnabled)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open object store")
	}
	defer store.Close()

	hub := realtime.NewHub(originChecker(cfg.CORSOrigins, cfg.Env == "production"))
	go hub.Run(ctx)

	dispatcher := worker.NewDispatcher(rdb)
	breaker := infra.NewCircuitBreaker(infra.MailBreakerConfig())

	// The gate is loaded before serving so the first request sees the real
	// session state.
	gate := service.NewSessionGate(repository.NewSessionRepository(db), time.Now)
	core := router.Core{Gate: gate, Hub: hub, Jobs: dispatcher, Store: store, Breaker: breaker}
	svcs := router.BuildServices(cfg, db, rdb, core)

	gate.Subscribe(func(s service.GateSnapshot) {
		if s.State == service.GateOpen {
			metrics.SessionOpen.Set(1)
		} else {
			metrics.SessionOpen.Set(0)
		}
		hub.Publish(handler.SessionStatusFromSnapshot(s))
	})
	if err := gate.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load session state")
	}
	go gate.Run(ctx, cfg.SessionTick(), cfg.SessionRefresh())

	// ── Workers ──────────────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	emailHandler := worker.NewReceiptEmailWorker(svcs.ReceiptsRepo, svcs.Receipts, mailer, breaker).Handle
	if !mailer.Configured() {
		log.Warn().Msg("SMTP_HOST not set; receipt emails are discarded")
		emailHandler = func(context.Context, json.RawMessage) error { return nil }
	}
	pool := worker.NewPool(rdb, map[string]worker.Handler{
		worker.QueueReceiptEmail: emailHandler,
		worker.QueueStatements:   worker.NewStatementWorker(svcs.Financial, rdb).Handle,
	})
	pool.Start(ctx, cfg.WorkerPoolSize)

	worker.StartStatementCron(ctx, worker.StatementCronConfig{
		Sessions: gate,
		Jobs:     dispatcher,
		Interval: cfg.StatementInterval(),
	})

	r := router.New(cfg, db, rdb, core, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("Fastclick listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// newObjectStore uses GCS when a bucket is configured, the local disk
// otherwise.
func newObjectStore(ctx context.Context, cfg *config.Config) (infra.ObjectStore, error) {
	if cfg.ObjectStoreBucket != "" {
		return infra.NewGCSStore(ctx, cfg.ObjectStoreBucket, cfg.GCSCredentialsJSON)
	}
	return infra.NewLocalStore(cfg.ReceiptStoragePath)
}

// originChecker mirrors the CORS policy for websocket upgrades.
func originChecker(origins string, production bool) func(*http.Request) bool {
	if !production && strings.TrimSpace(origins) == "" {
		return nil
	}
	allowed := make(map[string]bool)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[strings.TrimRight(o, "/")] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return allowed[u.Scheme+"://"+u.Host]
	}
}
