package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/expert-panel/backend/internal/config"
	"github.com/zhouzirui/expert-panel/backend/internal/handler"
	"github.com/zhouzirui/expert-panel/backend/internal/logging"
	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
	"github.com/zhouzirui/expert-panel/backend/internal/service/ai"
	"github.com/zhouzirui/expert-panel/backend/internal/service/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/service/gateway"
	"github.com/zhouzirui/expert-panel/backend/internal/store"
	"github.com/zhouzirui/expert-panel/backend/internal/store/postgres"
	"github.com/zhouzirui/expert-panel/backend/internal/store/sqlite"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return goerr.Wrap(err, "failed to load configuration")
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	items, err := persona.LoadFile(cfg.Personas.File)
	if err != nil {
		return err
	}
	personaStore := persona.NewMemoryStore(items)

	sessions, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer sessions.Close()
	logger.Info("session store ready", zap.String("driver", cfg.Store.Driver))

	backend, provider, err := ai.NewBackend(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrNoProvider):
		logger.Warn("no completion provider configured, serving canned replies only")
	case err != nil:
		return err
	default:
		logger.Info("completion backend ready", zap.String("provider", provider))
	}

	responder := gateway.New(backend,
		gateway.WithLogger(logger),
		gateway.WithCannedFallback(cfg.Chat.FallbackToCanned),
		gateway.WithReplayDelay(cfg.Chat.ReplayDelayMin, cfg.Chat.ReplayDelayMax),
	)
	chatSvc := chat.NewService(sessions, personaStore, responder, logger, chat.Config{
		HistoryLimit: cfg.Chat.HistoryLimit,
	})

	router := handler.NewRouter(personaStore, chatSvc, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("expert panel backend listening", zap.String("addr", srv.Addr))
	if err := runServer(ctx, srv); err != nil {
		return goerr.Wrap(err, "server error")
	}
	logger.Info("server stopped")
	return nil
}

// openStore returns the session store chosen by STORE_DRIVER. The caller closes it.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		return sqlite.Open(cfg.DSN)
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.DSN)
	default:
		return store.NewMemory(), nil
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
