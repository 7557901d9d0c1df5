package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldkit/dispatch-service/internal/config"
	"github.com/fieldkit/dispatch-service/internal/events"
)

// NotificationService reacts to domain events. Actual SMS/webhook delivery
// is an external collaborator; these handlers are transport stubs, kept
// fully decoupled from the state-machine core by the dispatcher boundary.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
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
	n.dispatcher.Subscribe(events.EventTicketTransitioned, n.handleTicketTransitioned)
	n.dispatcher.Subscribe(events.EventEscalationRaised, n.handleEscalationRaised)
	n.dispatcher.Subscribe(events.EventEscalationResolved, n.handleEscalationResolved)
	n.dispatcher.Subscribe(events.EventOTPIssued, n.handleOTPIssued)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketTransitioned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketTransitioned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendSMSStub(ctx, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEscalationRaised(ctx context.Context, event events.Event) error {
	n.logger.Warn("EscalationRaised", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEscalationResolved(ctx context.Context, event events.Event) error {
	n.logger.Info("EscalationResolved", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleOTPIssued(ctx context.Context, event events.Event) error {
	n.logger.Info("OTPIssued", zap.String("ticket_id", event.TicketID))
	n.sendSMSStub(ctx, event)
	return nil
}

func (n *NotificationService) sendSMSStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.SMSSender) == "" {
		return
	}
	n.logger.Debug("sendSMSStub",
		zap.String("sender", n.cfg.SMSSender),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
