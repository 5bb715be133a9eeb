package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/config"
	"expensetracker/internal/logger"
	"expensetracker/internal/mailer"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Mail worker error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required")
	}

	queue, err := mailer.NewQueue(cfg.AMQPURL, cfg.MailExchange, cfg.MailQueue)
	if err != nil {
		return err
	}
	defer queue.Close()

	delivery := mailer.NewLogMailer(logger.Named("delivery"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Consume(ctx, delivery.Send)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Get().Info("Mail worker stopped")
	return nil
}
