package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/servisdesk/servisdesk/internal/api/http"
	"github.com/servisdesk/servisdesk/internal/api/http/handlers"
	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/persistence"
	"github.com/servisdesk/servisdesk/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()
		logger := rt.logger

		if rt.cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(rt.cfg.Postgres.DSN, logger); err != nil {
				return err
			}
		}

		worker.StartNotificationWorker(rt.notifications, logger)

		loc, err := rt.cfg.App.Location()
		if err != nil {
			return err
		}
		limiter := httptransport.NewLoginLimiter(rt.cfg.RateLimit, 5*time.Minute, logger)
		defer limiter.Stop()

		app := fiber.New(fiber.Config{
			AppName:      rt.cfg.App.Name,
			ErrorHandler: httptransport.ErrorHandler,
		})
		httptransport.RegisterMiddlewares(app, logger, rt.metrics, rt.cfg.App.RequestTimeout())
		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Health: handlers.NewHealthHandler(rt.cfg.App.Name, rt.cfg.App.Version, map[string]handlers.Pinger{
				"postgres": rt.pg,
				"redis":    rt.redis,
			}),
			Auth:           handlers.NewAuthHandler(rt.authSvc),
			Tickets:        handlers.NewTicketsHandler(rt.tickets, loc),
			Users:          handlers.NewUsersHandler(rt.identitySvc),
			Profile:        handlers.NewProfileHandler(rt.profiles),
			AuthMiddleware: auth.NewAuthMiddleware(rt.tokens, rt.revoked, rt.identities, logger),
			LoginLimiter:   limiter,
			Metrics:        rt.metrics,
		})

		go func() {
			if err := app.Listen(rt.cfg.App.Addr()); err != nil {
				logger.Error("fiber listen", zap.Error(err))
				cancel()
			}
		}()

		waitForShutdown(ctx, logger)
		return app.ShutdownWithTimeout(10 * time.Second)
	},
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}
