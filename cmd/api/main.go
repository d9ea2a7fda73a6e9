package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"review_analyzer/internal/adapters/csvseed"
	server "review_analyzer/internal/adapters/http_server"
	"review_analyzer/internal/adapters/observability"
	redisad "review_analyzer/internal/adapters/redis"
	"review_analyzer/internal/adapters/sentiment"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/shared"
	"review_analyzer/internal/storage/memory"
	mysqlrepo "review_analyzer/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.RegisterDefault()
	observability.Serve()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	gate := app.NewValidationGate(shared.AllowedLocations)
	seedIfEmpty(ctx, store, gate, cfg)

	scorer := sentiment.NewVader()
	q := app.NewQueryService(store, scorer, gate, cfg.ScoreWorkers)
	w := app.NewWriteService(store, scorer, gate, clockwork.NewRealClock())

	// http
	srv := server.New(server.Options{Timeout: cfg.RequestTimeout, WriteRPS: cfg.WriteRPS, WriteBurst: cfg.WriteBurst})
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, W: w})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.StoreBackend).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// openStore builds the configured ReviewStore and its cleanup.
func openStore(ctx context.Context, cfg shared.Config) (domain.ReviewStore, func()) {
	switch cfg.StoreBackend {
	case "redis":
		s := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
		if err := s.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("redis ping failed")
		}
		log.Info().Msg("redis connection ok")
		return s, func() { _ = s.Close() }

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		repo := mysqlrepo.New(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure schema failed")
		}
		log.Info().Msg("database connection ok")
		return repo, func() { _ = db.Close() }
	}
	return memory.New(), func() {}
}

// seedIfEmpty loads the seed file into a fresh store. Durable backends keep
// their data across restarts and are not seeded twice.
func seedIfEmpty(ctx context.Context, st domain.ReviewStore, gate *app.ValidationGate, cfg shared.Config) {
	n, err := st.Len(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("store size check failed")
	}
	if n > 0 || cfg.SeedFile == "" {
		observability.SetStoreSize(cfg.StoreBackend, n)
		log.Info().Int("reviews", n).Msg("store not seeded")
		return
	}
	rs, err := csvseed.LoadFile(cfg.SeedFile, gate)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("file", cfg.SeedFile).Msg("seed file not found, starting empty")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("seed file invalid")
	}
	if _, err := csvseed.Seed(ctx, st, rs); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	observability.SetStoreSize(cfg.StoreBackend, len(rs))
}
