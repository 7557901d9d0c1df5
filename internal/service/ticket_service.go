package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/events"
	"github.com/fieldkit/dispatch-service/internal/repository"
	apperrors "github.com/fieldkit/dispatch-service/pkg/util"
)

// TicketService covers intake and read paths. All lifecycle mutation lives
// in TransitionService.
type TicketService struct {
	tickets     repository.TicketRepository
	history     repository.TicketHistoryRepository
	attachments repository.AttachmentRepository
	otp         repository.OTPStore
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	HistoryRepo    repository.TicketHistoryRepository
	AttachmentRepo repository.AttachmentRepository
	OTPStore       repository.OTPStore
	Dispatcher     events.Dispatcher
}

// TicketCreateInput describes intake payload.
type TicketCreateInput struct {
	Priority        domain.TicketPriority
	DeviceType      string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	UnderWarranty   bool
	WarrantyUntil   *time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		history:     deps.HistoryRepo,
		attachments: deps.AttachmentRepo,
		otp:         deps.OTPStore,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateTicket registers a new repair request in status NEW.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleDispatcher && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only dispatchers may create tickets")
	}
	if strings.TrimSpace(input.DeviceType) == "" || strings.TrimSpace(input.CustomerName) == "" {
		return nil, apperrors.NewValidationError("device_type and customer_name required", nil)
	}

	ticket := &domain.Ticket{
		TicketNumber:    generateTicketNumber(),
		Status:          domain.TicketStatusNew,
		Priority:        input.Priority,
		DeviceType:      strings.TrimSpace(input.DeviceType),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		CustomerAddress: strings.TrimSpace(input.CustomerAddress),
		UnderWarranty:   input.UnderWarranty,
		WarrantyUntil:   input.WarrantyUntil,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Priority:     ticket.Priority,
			DeviceType:   ticket.DeviceType,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket snapshot.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// GetHistory returns the full transition audit trail, ascending.
func (s *TicketService) GetHistory(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// RegisterAttachment records photo metadata; bytes are stored externally.
func (s *TicketService) RegisterAttachment(ctx context.Context, actor domain.Actor, ticketID string, kind domain.AttachmentKind, storageKey string) (*domain.AttachmentReference, error) {
	if actor.Role == domain.RoleCustomer {
		return nil, apperrors.NewForbidden("customers cannot attach evidence")
	}
	switch kind {
	case domain.AttachmentBeforeInspection, domain.AttachmentDuringRepair, domain.AttachmentAfterRepair:
	default:
		return nil, apperrors.NewValidationError("unknown attachment kind", map[string]any{"kind": kind})
	}
	if strings.TrimSpace(storageKey) == "" {
		return nil, apperrors.NewValidationError("storage_key required", nil)
	}
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	attachment := &domain.AttachmentReference{
		TicketID:   ticketID,
		Kind:       kind,
		StorageKey: storageKey,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// IssueOTP generates a completion-confirmation code for the ticket. The code
// is delivered to the customer by the notification collaborator; only the
// expiry is returned to the requesting actor.
func (s *TicketService) IssueOTP(ctx context.Context, actor domain.Actor, ticketID string) (time.Time, error) {
	if actor.Role == domain.RoleCustomer {
		return time.Time{}, apperrors.NewForbidden("customers cannot issue confirmation codes")
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return time.Time{}, err
	}
	code, expiresAt, err := s.otp.Issue(ctx, ticket.ID)
	if err != nil {
		return time.Time{}, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventOTPIssued,
		TicketID: ticket.ID,
		Actor:    events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.OTPIssuedPayload{
			Code:          code,
			CustomerPhone: ticket.CustomerPhone,
			ExpiresAt:     expiresAt,
		},
	})
	return expiresAt, nil
}

func generateTicketNumber() string {
	return "RPT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
