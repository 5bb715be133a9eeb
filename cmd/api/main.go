package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/config"
	"expensetracker/internal/database"
	"expensetracker/internal/logger"
	"expensetracker/internal/mailer"
	"expensetracker/internal/router"
	"expensetracker/internal/services"
	"expensetracker/internal/validator"
)

// @title           ExpenseTracker API
// @version         1.0
// @description     Personal expense tracking with nested categories and cookie sessions.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey SessionCookie
// @in header
// @name Cookie
// @description The et_session cookie set by POST /session.

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig(appConfig)
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	var mail mailer.Mailer = mailer.NewLogMailer(logger.Named("mailer"))
	if appConfig.AMQPURL != "" {
		queue, err := mailer.NewQueue(appConfig.AMQPURL, appConfig.MailExchange, appConfig.MailQueue)
		if err != nil {
			return fmt.Errorf("failed to connect to mail queue: %w", err)
		}
		defer queue.Close()
		mail = queue
	} else {
		log.Warn("AMQP_URL not set, mail jobs are written to the log")
	}

	db := dbManager.DB()
	sessions := services.NewSessionService(db, appConfig.SessionTTL)

	engine := router.New(router.Deps{
		Users:          services.NewUserService(db),
		Sessions:       sessions,
		Categories:     services.NewCategoryService(db),
		Expenses:       services.NewExpenseService(db),
		Audit:          services.NewAuditService(db),
		Mailer:         mail,
		AppURL:         appConfig.AppURL,
		FrontendOrigin: appConfig.FrontendOrigin,
	})

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting ExpenseTracker server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := sessions.PurgeExpired()
				if err != nil {
					log.Errorw("failed to purge expired sessions", "error", err)
					continue
				}
				if n > 0 {
					log.Infow("purged expired sessions", "count", n)
				}
			}
		}
	})

	return g.Wait()
}
