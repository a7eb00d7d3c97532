package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/config"
	"github.com/servisdesk/servisdesk/internal/events"
	"github.com/servisdesk/servisdesk/internal/observability"
	"github.com/servisdesk/servisdesk/internal/persistence"
	"github.com/servisdesk/servisdesk/internal/repository"
	"github.com/servisdesk/servisdesk/internal/security"
	"github.com/servisdesk/servisdesk/internal/service"
)

const webhookTimeout = 5 * time.Second

// runtime holds the wired dependencies shared by every command.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	pg      *persistence.Postgres
	redis   *persistence.Redis
	metrics *observability.Metrics

	identities repository.IdentityRepository
	tokens     *auth.TokenManager
	revoked    auth.RevocationStore
	dispatcher events.Dispatcher

	tickets       *service.TicketService
	identitySvc   *service.IdentityService
	profiles      *service.ProfileService
	authSvc       *service.AuthService
	notifications *service.NotificationService
}

func loadBase() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, logger, err := loadBase()
	if err != nil {
		return nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pool := pg.PoolHandle()
	identityRepo := repository.NewIdentityRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	transactor := repository.NewTransactor(pool)

	rt := &runtime{
		cfg:        cfg,
		logger:     logger,
		pg:         pg,
		redis:      redis,
		metrics:    metrics,
		identities: identityRepo,
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute),
		revoked:    auth.NewRedisRevocationStore(redis.Client),
		dispatcher: events.NewInMemoryDispatcher(logger, metrics),
	}

	rt.tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		IdentityRepo: identityRepo,
		Transactor:   transactor,
		Dispatcher:   rt.dispatcher,
		Logger:       logger,
	})
	rt.identitySvc = service.NewIdentityService(service.IdentityDependencies{
		IdentityRepo: identityRepo,
		ProfileRepo:  profileRepo,
		Transactor:   transactor,
		Dispatcher:   rt.dispatcher,
		Logger:       logger,
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	rt.profiles = service.NewProfileService(identityRepo, profileRepo, transactor, logger)
	rt.authSvc = service.NewAuthService(service.AuthDependencies{
		IdentityRepo: identityRepo,
		ProfileRepo:  profileRepo,
		Transactor:   transactor,
		Tokens:       rt.tokens,
		Revocations:  rt.revoked,
		Logger:       logger,
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	notifier, err := newNotifier(cfg.Notification, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.notifications = service.NewNotificationService(rt.dispatcher, identityRepo, ticketRepo, notifier, logger, cfg.Notification)
	return rt, nil
}

// newNotifier returns nil, meaning log-only delivery, when no webhook is configured.
func newNotifier(cfg config.NotificationConfig, logger *zap.Logger) (service.Notifier, error) {
	if cfg.WebhookURL == "" {
		return nil, nil
	}
	if err := security.ValidateWebhookURL(cfg.WebhookURL); err != nil {
		return nil, fmt.Errorf("NOTIFY_WEBHOOK_URL: %w", err)
	}
	client := security.NewSafeHTTPClient(webhookTimeout)
	return service.NewWebhookNotifier(client, logger.Named("webhook")), nil
}

func (rt *runtime) Close() {
	rt.redis.Close()
	rt.pg.Close()
	_ = rt.logger.Sync()
}
