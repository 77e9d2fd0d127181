package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentportal/aserver/internal/config"
	"github.com/agentportal/aserver/migrations"
	"github.com/agentportal/aserver/router"
	"github.com/agentportal/aserver/services"
	"github.com/agentportal/aserver/workers"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply pending migrations before serving")
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, pg, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer pg.Close()

	cfg := config.App

	if migrateOnStart {
		if err := migrations.Up(pg, log); err != nil {
			return err
		}
	}

	notifier, closeNotifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	schedule := services.NewOperatingHoursService(pg, notifier, log, loc)

	var tokens *services.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokens = services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		log.Warn("auth.jwt_secret is empty, agent routes are unauthenticated")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.NewGinRouter(router.Deps{
		PG:                pg,
		Notifier:          notifier,
		Logger:            log,
		Schedule:          schedule,
		Tokens:            tokens,
		LegacyStatusCodes: cfg.Compat.LegacyStatusCodes,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		workers.NewKeepaliveWorker(pg, cfg.Workers.KeepaliveInterval, log).Start(gctx)
		return nil
	})
	g.Go(func() error {
		workers.NewScheduleSyncWorker(schedule, cfg.Notifier.ResyncInterval, log).Start(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server started",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", cfg.TLS.CertFile != ""))

		var err error
		if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
