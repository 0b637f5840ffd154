package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/infrastructure/database"
	"github.com/diaglab/labdesk-api/internal/presentation/http/middleware"
	"github.com/diaglab/labdesk-api/internal/presentation/http/routes"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "labdesk-api",
		Short:        "Diagnostic lab management API",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newInvoicesCmd(),
		newIdempotencyCmd(),
	)
	return root
}

// bootstrap loads configuration, builds the logger and connects to the
// database. Every command starts here.
func bootstrap() (*config.Config, *logger.Logger, *gorm.DB, error) {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level)

	db, err := database.NewPostgresDB(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}

			if migrate {
				if err := database.AutoMigrate(db, log); err != nil {
					return err
				}
				if err := database.SeedDefaultData(db, cfg, log); err != nil {
					log.WithError(err).Warn("Failed to seed default data")
				}
			}

			if cfg.App.Env == "production" {
				gin.SetMode(gin.ReleaseMode)
			}

			a := newApp(cfg, db, log)
			rateLimiter := middleware.NewUserRateLimiter(middleware.RateLimiterConfigFrom(cfg.RateLimit))
			defer rateLimiter.Stop()

			router := routes.Setup(a.handlers(), &routes.Deps{
				JWTManager:      a.jwtManager,
				Cfg:             cfg,
				IdempotencyRepo: a.idempotencyRepo,
				Log:             log,
				RateLimiter:     rateLimiter,
			})

			return serve(cmd.Context(), cfg, log, router)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "run migrations and seed default data before serving")
	return cmd
}

// serve runs the server until SIGINT or SIGTERM, then drains in-flight
// requests for up to the configured shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger, router http.Handler) error {
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": port, "env": cfg.App.Env}).
			Infof("Starting %s server", cfg.App.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("Server failed")
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shut down")
		return err
	}
	log.Info("Server stopped")
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(*cobra.Command, []string) error {
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			return database.AutoMigrate(db, log)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed roles, permissions, the default admin and a sample catalog",
		RunE: func(*cobra.Command, []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			return database.SeedDefaultData(db, cfg, log)
		},
	}
}

func newInvoicesCmd() *cobra.Command {
	invoices := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice maintenance",
	}

	invoices.AddCommand(&cobra.Command{
		Use:   "refresh-overdue",
		Short: "Mark unpaid invoices past their due date as overdue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}

			updated, err := newApp(cfg, db, log).invoices.RefreshOverdue(cmd.Context())
			if err != nil {
				log.WithError(err).Error("Failed to refresh overdue invoices")
				return err
			}
			log.WithField("updated", updated).Info("Overdue invoices refreshed")
			return nil
		},
	})
	return invoices
}

func newIdempotencyCmd() *cobra.Command {
	keys := &cobra.Command{
		Use:   "idempotency",
		Short: "Idempotency key maintenance",
	}

	keys.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired idempotency keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}

			deleted, err := newApp(cfg, db, log).idempotencyRepo.DeleteExpired(cmd.Context())
			if err != nil {
				return err
			}
			log.WithField("deleted", deleted).Info("Expired idempotency keys purged")
			return nil
		},
	})
	return keys
}
