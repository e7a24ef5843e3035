package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/app"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	v1 "github.com/johnrobertdelinila/juan-heart-web-sub002/internal/handler/v1"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/cache"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/database"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/logger"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/tlsconfig"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/tracer"
)

func serveCmd() *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "Keep all data in process memory instead of PostgreSQL")
	return cmd
}

// bootstrap loads configuration and builds the logger every command shares.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

// openRepositories returns the repositories for the configured backend and
// a cleanup func that releases it.
func openRepositories(cfg *config.Config, log *zap.Logger, inMemory bool) (app.Repositories, *gorm.DB, func(), error) {
	if inMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return app.MemoryRepositories(memory.NewStore()), nil, func() {}, nil
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return app.Repositories{}, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	closeDB := func() {
		if err := database.Close(db); err != nil {
			log.Error("closing database", zap.Error(err))
		}
	}
	return app.PostgresRepositories(db), db, closeDB, nil
}

func runServer(ctx context.Context, inMemory bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracer, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initialising tracer: %w", err)
	}

	repos, db, closeDB, err := openRepositories(cfg, log, inMemory)
	if err != nil {
		return err
	}
	defer closeDB()

	checks := map[string]v1.Pinger{}
	if db != nil {
		checks["database"] = v1.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) })
	}

	var c cache.Cache = cache.Noop{}
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Namespace: cfg.App.Name,
		})
		if err != nil {
			return err
		}
		c = rc
		checks["redis"] = rc
	}
	defer func() { _ = c.Close() }()

	a, err := app.New(ctx, app.Options{
		Config:  cfg,
		Repos:   repos,
		Cache:   c,
		Metrics: metrics.NewCollector(cfg.App.Name),
		Log:     log,
		Checks:  checks,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	if cfg.Server.TLSEnabled() {
		tlsCfg, err := tlsconfig.ServerTLSConfig(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile, cfg.Server.ClientCAFile)
		if err != nil {
			return fmt.Errorf("loading tls config: %w", err)
		}
		srv.TLSConfig = tlsCfg
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", srv.TLSConfig != nil),
			zap.String("environment", cfg.App.Environment),
		)
		var err error
		if srv.TLSConfig != nil {
			// Certificates are already loaded into TLSConfig.
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := a.Close(); err != nil {
		log.Error("closing app", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("flushing traces", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}
