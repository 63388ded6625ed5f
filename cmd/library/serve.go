package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	_ "github.com/shelfmark/library-api/docs"
	"github.com/shelfmark/library-api/internal/api"
	"github.com/shelfmark/library-api/internal/core/service"
	"github.com/shelfmark/library-api/internal/infrastructure/queue"
	"github.com/shelfmark/library-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	log := logger.Get()
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Close(); err != nil {
			log.Error().Err(err).Msg("closing store")
		}
	}()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	calendar := service.NewCalendar(loc)

	if a.cfg.Library.SeedOnStart {
		if _, err := service.NewSeeder(be.store, logger.Component("seeder")).Seed(ctx); err != nil {
			return err
		}
	}

	secret := a.cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Msg("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	settings := service.NewSettingsService(be.store, logger.Component("settings"))
	alerts := service.NewAlertService(be.store, settings, be.dedup, calendar, logger.Component("alerts"))
	dispatcher := queue.NewDispatcher(a.cfg.Library.AlertWorkers, alerts, logger.Component("dispatcher"))

	// Workers outlive the signal context so events published while
	// draining HTTP requests are still processed.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	users := service.NewUserRepository(be.store)
	e := api.NewRouter(api.Deps{
		Auth:      service.NewAuthService(users, secret, a.cfg.TokenTTL),
		Books:     service.NewBookService(be.store, dispatcher, logger.Component("books")),
		Users:     service.NewUserService(users, logger.Component("users")),
		Settings:  settings,
		Lending:   service.NewLendingService(service.NewLedger(be.store), settings, dispatcher, calendar, logger.Component("lending")),
		Readiness: be.readiness(),
		JWTSecret: secret,
		Logger:    logger.Component("http"),
		Metrics:   true,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", a.cfg.Port).
			Str("store", be.name).
			Str("timezone", loc.String()).
			Msg("server starting")
		if err := e.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
