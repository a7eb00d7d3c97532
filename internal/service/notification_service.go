package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/config"
	"github.com/servisdesk/servisdesk/internal/events"
	"github.com/servisdesk/servisdesk/internal/repository"
)

// Notifier delivers a rendered notification. The default implementation only logs.
type Notifier interface {
	Notify(ctx context.Context, channel, recipient, subject string, event events.Event) error
}

// NotificationService turns domain events into notifications for the people involved.
type NotificationService struct {
	dispatcher events.Dispatcher
	identities repository.IdentityRepository
	tickets    repository.TicketRepository
	notifier   Notifier
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil notifier logs deliveries.
func NewNotificationService(dispatcher events.Dispatcher, identities repository.IdentityRepository, tickets repository.TicketRepository, notifier Notifier, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		identities: identities,
		tickets:    tickets,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.Int64("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	if err := n.emailTicketCreator(ctx, event, "Ticket status changed"); err != nil {
		return err
	}
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.Int64("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.AssigneeID == nil {
		return nil
	}
	return n.emailIdentity(ctx, *payload.AssigneeID, "Ticket assigned to you", event)
}

func (n *NotificationService) handleTicketCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCommentAdded", zap.Int64("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.TicketCommentAddedPayload); ok && payload.IsInternal {
		return nil
	}
	return n.emailTicketCreator(ctx, event, "New comment on your ticket")
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketDeleted", zap.Int64("ticket_id", event.SubjectID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

// emailTicketCreator notifies the creator unless they caused the event.
func (n *NotificationService) emailTicketCreator(ctx context.Context, event events.Event, subject string) error {
	if n.tickets == nil {
		return nil
	}
	ticket, err := n.tickets.GetByID(ctx, event.SubjectID)
	if err != nil {
		return err
	}
	if ticket.CreatorID == event.ActorID {
		return nil
	}
	return n.emailIdentity(ctx, ticket.CreatorID, subject, event)
}

func (n *NotificationService) emailIdentity(ctx context.Context, identityID int64, subject string, event events.Event) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || n.identities == nil {
		return nil
	}
	identity, err := n.identities.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if !identity.IsActive || strings.TrimSpace(identity.Email) == "" {
		return nil
	}
	return n.notifier.Notify(ctx, "email", identity.Email, subject, event)
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	return n.notifier.Notify(ctx, "webhook", n.cfg.WebhookURL, string(event.Type), event)
}

type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Notify(_ context.Context, channel, recipient, subject string, event events.Event) error {
	l.logger.Debug("notification",
		zap.String("channel", channel),
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
	return nil
}
