package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-print"

	"github.com/goliatone/go-auth-stateless/app"
	"github.com/goliatone/go-auth-stateless/config"
	"github.com/goliatone/go-auth-stateless/logging"
	"github.com/goliatone/go-auth-stateless/mailer"
	"github.com/goliatone/go-auth-stateless/repository"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	logger := logging.NewZapLogger(zl)
	defer func() { _ = logger.Sync() }()

	redacted := cfg
	redacted.SigningKey = "********"
	logger.Debug("config loaded", "config", print.MaybePrettyJSON(redacted))

	repo, err := repository.Connect(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	srv, err := app.New(cfg, repo,
		app.WithLogger(logger.Named("auth")),
		app.WithMailer(mailer.NewLogMailer(logger.Named("mailer"))),
	)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
