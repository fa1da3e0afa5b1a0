package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/archipelago/internal/cache"
	"github.com/jason-s-yu/archipelago/internal/config"
	"github.com/jason-s-yu/archipelago/internal/database"
	"github.com/jason-s-yu/archipelago/internal/logging"
	"github.com/jason-s-yu/archipelago/internal/server"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		config.Exitf("archipelago: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		config.Exitf("archipelago: %v", err)
	}
	log := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

func run(ctx context.Context, cfg config.Server, log *logrus.Entry) error {
	var opts server.Options

	if cfg.RedisURL != "" {
		h, err := cache.NewHistorian(ctx, cfg.RedisURL, cfg.HistoryTTL)
		if err != nil {
			return err
		}
		defer h.Close()
		opts.Historian = h
		log.Info("Action history enabled")
	}

	archive, err := database.Open(ctx, database.Dialect(cfg.DBDialect), cfg.SQLitePath, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
		opts.Archive = archive
		log.WithField("dialect", cfg.DBDialect).Info("Match archive enabled")
	}

	srv := server.New(cfg, log, opts)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.ListenAddr).Info("Listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Hijacked websockets are not tracked by http.Server; stop the matches first.
		if err := srv.Shutdown(sctx); err != nil {
			log.WithError(err).Warn("Matches did not stop in time")
		}
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}
