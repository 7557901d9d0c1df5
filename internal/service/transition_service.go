package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/events"
	"github.com/fieldkit/dispatch-service/internal/observability"
	"github.com/fieldkit/dispatch-service/internal/repository"
	apperrors "github.com/fieldkit/dispatch-service/pkg/util"
)

// GeoPoint is a discrete location snapshot captured with a transition.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// ConfirmationType selects how a completion is confirmed by the customer.
type ConfirmationType string

const (
	ConfirmationSignature ConfirmationType = "SIGNATURE"
	ConfirmationOTP       ConfirmationType = "OTP"
)

// TransitionPayload carries the evidence and context for one transition
// request. Guards evaluate it together with already-persisted evidence.
type TransitionPayload struct {
	Location             *GeoPoint
	Photos               []string
	TechnicianID         *string
	ScheduledAt          *time.Time
	ScheduledSlot        string
	DiagnosisNotes       string
	ConfirmationType     ConfirmationType
	Signature            string
	OTPCode              string
	Reasons              []domain.NotFixedReason
	CustomerAcknowledged bool
	Reason               string
	Notes                string
	Override             bool
}

// TransitionResult is the success snapshot returned to the caller.
type TransitionResult struct {
	Ticket  *domain.Ticket
	History *domain.TicketStatusHistory
}

// TransitionService is the single authoritative point for lifecycle
// mutation: edge legality, guard evaluation, atomic commit, post-commit
// escalation recompute and event emission.
type TransitionService struct {
	tickets      repository.TicketRepository
	history      repository.TicketHistoryRepository
	guards       *GuardEvaluator
	escalations  *EscalationService
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	metrics      *observability.Metrics
	queryTimeout time.Duration
}

// TransitionDependencies bundles collaborators for the engine.
type TransitionDependencies struct {
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.TicketHistoryRepository
	Guards       *GuardEvaluator
	Escalations  *EscalationService
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	QueryTimeout time.Duration
}

// NewTransitionService constructs the engine.
func NewTransitionService(deps TransitionDependencies) *TransitionService {
	return &TransitionService{
		tickets:      deps.TicketRepo,
		history:      deps.HistoryRepo,
		guards:       deps.Guards,
		escalations:  deps.Escalations,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		queryTimeout: deps.QueryTimeout,
	}
}

// statusRoles restricts who may request a given target status. Admin is
// always allowed.
var statusRoles = map[domain.TicketStatus][]domain.ActorRole{
	domain.TicketStatusAssigned:      {domain.RoleDispatcher},
	domain.TicketStatusScheduled:     {domain.RoleDispatcher},
	domain.TicketStatusCancelled:     {domain.RoleDispatcher},
	domain.TicketStatusOnRoute:       {domain.RoleTechnician},
	domain.TicketStatusArrived:       {domain.RoleTechnician},
	domain.TicketStatusInspecting:    {domain.RoleTechnician},
	domain.TicketStatusDiagnosed:     {domain.RoleTechnician},
	domain.TicketStatusRepairing:     {domain.RoleTechnician},
	domain.TicketStatusWaitingParts:  {domain.RoleTechnician},
	domain.TicketStatusPickupDevice:  {domain.RoleTechnician},
	domain.TicketStatusInWorkshop:    {domain.RoleTechnician},
	domain.TicketStatusReadyDelivery: {domain.RoleTechnician},
	domain.TicketStatusCompleted:     {domain.RoleTechnician},
	domain.TicketStatusNotFixed:      {domain.RoleTechnician},
}

func roleAllowed(role domain.ActorRole, to domain.TicketStatus) bool {
	if role == domain.RoleAdmin {
		return true
	}
	for _, allowed := range statusRoles[to] {
		if allowed == role {
			return true
		}
	}
	return false
}

// RequestTransition validates and commits one lifecycle transition. On any
// failure the ticket, its history and its escalations are untouched.
func (s *TransitionService) RequestTransition(ctx context.Context, ticketID string, actor domain.Actor, to domain.TicketStatus, payload TransitionPayload) (*TransitionResult, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	from := ticket.Status

	override := false
	if domain.IsTerminal(from) {
		if !payload.Override || actor.Role != domain.RoleAdmin {
			s.metrics.RecordTransition(string(to), false)
			return nil, apperrors.NewInvalidTransition(string(from), string(to))
		}
		override = true
	} else {
		if !roleAllowed(actor.Role, to) {
			return nil, apperrors.NewForbidden("role not permitted for target status")
		}
		if !domain.CanTransition(from, to) {
			s.metrics.RecordTransition(string(to), false)
			return nil, apperrors.NewInvalidTransition(string(from), string(to))
		}
		if err := s.guards.Evaluate(ctx, ticket, to, payload); err != nil {
			s.metrics.RecordTransition(string(to), false)
			return nil, err
		}
	}

	applyPayload(ticket, to, payload)
	ticket.Status = to

	entry := &domain.TicketStatusHistory{
		TicketID:   ticket.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Notes:      historyNotes(payload),
		Override:   override,
	}
	if payload.Location != nil {
		lat, lng := payload.Location.Latitude, payload.Location.Longitude
		entry.Latitude, entry.Longitude = &lat, &lng
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := s.tickets.CommitTransition(commitCtx, ticket, ticket.Version, entry); err != nil {
		s.metrics.RecordTransition(string(to), false)
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, apperrors.NewConcurrentModification(ticket.ID)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewPersistenceTimeout(err)
		}
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordTransition(string(to), true)

	if s.escalations != nil {
		if err := s.escalations.EvaluateTicket(ctx, ticket.ID, time.Now()); err != nil {
			s.logger.Warn("post-transition escalation evaluation failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransitioned,
		TicketID: ticket.ID,
		Actor:    events.Actor{ID: actor.ID, Role: actor.Role},
		Payload: events.TicketTransitionedPayload{
			FromStatus: from,
			ToStatus:   to,
			Notes:      entry.Notes,
			Override:   override,
		},
	})

	return &TransitionResult{Ticket: ticket, History: entry}, nil
}

// NextActions returns the target statuses the actor could request next.
// Pure graph and role filtering; guards are not evaluated speculatively.
func (s *TransitionService) NextActions(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.TicketStatus, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminal(ticket.Status) {
		return []domain.TicketStatus{}, nil
	}
	candidates := domain.NextStatuses(ticket.Status)
	hasCancel := false
	for _, c := range candidates {
		if c == domain.TicketStatusCancelled {
			hasCancel = true
		}
	}
	if !hasCancel {
		candidates = append(candidates, domain.TicketStatusCancelled)
	}
	actions := make([]domain.TicketStatus, 0, len(candidates))
	for _, c := range candidates {
		if roleAllowed(actor.Role, c) {
			actions = append(actions, c)
		}
	}
	return actions, nil
}

func (s *TransitionService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	loadCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	ticket, err := s.tickets.GetByID(loadCtx, ticketID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewPersistenceTimeout(err)
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func applyPayload(ticket *domain.Ticket, to domain.TicketStatus, payload TransitionPayload) {
	switch to {
	case domain.TicketStatusAssigned:
		ticket.TechnicianID = payload.TechnicianID
	case domain.TicketStatusScheduled:
		ticket.ScheduledAt = payload.ScheduledAt
		ticket.ScheduledSlot = payload.ScheduledSlot
	case domain.TicketStatusDiagnosed:
		ticket.DiagnosisNotes = strings.TrimSpace(payload.DiagnosisNotes)
	case domain.TicketStatusCompleted, domain.TicketStatusNotFixed:
		if notes := strings.TrimSpace(payload.Notes); notes != "" {
			ticket.RepairNotes = notes
		}
	}
}

func historyNotes(payload TransitionPayload) string {
	if notes := strings.TrimSpace(payload.Notes); notes != "" {
		return notes
	}
	return strings.TrimSpace(payload.Reason)
}

func (s *TransitionService) publishEvent(ctx context.Context, event events.Event) {
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
