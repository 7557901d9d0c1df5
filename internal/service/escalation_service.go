package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldkit/dispatch-service/internal/config"
	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/events"
	"github.com/fieldkit/dispatch-service/internal/observability"
	"github.com/fieldkit/dispatch-service/internal/repository"
	apperrors "github.com/fieldkit/dispatch-service/pkg/util"
)

// finding is one classified anomaly for a ticket.
type finding struct {
	level  domain.EscalationLevel
	reason string
}

// EscalationService classifies tickets against SLA thresholds and keeps the
// escalation records consistent with the current lifecycle position. It runs
// after each committed transition and periodically via the sweep worker;
// both paths are idempotent.
type EscalationService struct {
	tickets     repository.TicketRepository
	history     repository.TicketHistoryRepository
	escalations repository.EscalationRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	cfg         config.EscalationConfig
}

// EscalationDependencies bundles collaborators for the monitor.
type EscalationDependencies struct {
	TicketRepo     repository.TicketRepository
	HistoryRepo    repository.TicketHistoryRepository
	EscalationRepo repository.EscalationRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Config         config.EscalationConfig
}

// NewEscalationService constructs the monitor.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		tickets:     deps.TicketRepo,
		history:     deps.HistoryRepo,
		escalations: deps.EscalationRepo,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		cfg:         deps.Config,
	}
}

// RunSweep classifies every active ticket. Per-ticket failures are logged
// and skipped; one bad ticket never aborts the sweep.
func (s *EscalationService) RunSweep(ctx context.Context, now time.Time) error {
	tickets, err := s.tickets.ListActive(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	s.metrics.RecordSweep()
	for i := range tickets {
		if err := s.EvaluateTicket(ctx, tickets[i].ID, now); err != nil {
			s.logger.Warn("sweep: ticket evaluation failed",
				zap.String("ticket_id", tickets[i].ID), zap.Error(err))
		}
	}
	return nil
}

// EvaluateTicket recomputes findings for one ticket and reconciles them
// with stored escalations: missing findings are opened, cleared conditions
// are resolved. Never creates a duplicate unresolved (ticket, type) pair.
func (s *EscalationService) EvaluateTicket(ctx context.Context, ticketID string, now time.Time) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}

	findings := s.classify(ticket, history, now)

	open, err := s.escalations.ListUnresolvedByTicket(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	openByType := make(map[domain.EscalationType]domain.Escalation, len(open))
	for _, escalation := range open {
		openByType[escalation.Type] = escalation
	}

	for escalationType, f := range findings {
		if _, exists := openByType[escalationType]; exists {
			continue
		}
		escalation := &domain.Escalation{
			TicketID: ticketID,
			Level:    f.level,
			Type:     escalationType,
			Reason:   f.reason,
		}
		if err := s.escalations.Create(ctx, escalation); err != nil {
			return apperrors.MapError(err)
		}
		s.metrics.RecordEscalationOpened(string(escalationType))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventEscalationRaised,
			TicketID: ticketID,
			Payload: events.EscalationRaisedPayload{
				EscalationID: escalation.ID,
				Level:        escalation.Level,
				Type:         escalation.Type,
				Reason:       escalation.Reason,
			},
		})
	}

	for escalationType, escalation := range openByType {
		if _, still := findings[escalationType]; still {
			continue
		}
		if err := s.escalations.Resolve(ctx, escalation.ID, now); err != nil {
			return apperrors.MapError(err)
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventEscalationResolved,
			TicketID: ticketID,
			Payload: events.EscalationResolvedPayload{
				EscalationID: escalation.ID,
				Type:         escalation.Type,
			},
		})
	}
	return nil
}

// classify derives findings from the ticket and its history sequence. Time
// in the current state is the distance from the latest history timestamp;
// a ticket with no transitions yet is measured from creation.
func (s *EscalationService) classify(ticket *domain.Ticket, history []domain.TicketStatusHistory, now time.Time) map[domain.EscalationType]finding {
	findings := make(map[domain.EscalationType]finding)
	if domain.IsTerminal(ticket.Status) {
		return findings
	}

	enteredAt := ticket.CreatedAt
	if len(history) > 0 {
		enteredAt = history[len(history)-1].CreatedAt
	}
	inState := now.Sub(enteredAt)

	if ticket.Status == domain.TicketStatusAssigned && inState > s.cfg.AssignmentDelay() {
		findings[domain.EscalationAssignmentDelay] = finding{
			level:  domain.EscalationL1,
			reason: fmt.Sprintf("assigned for %s without being scheduled", inState.Round(time.Minute)),
		}
	}

	if ticket.ScheduledAt != nil && !pastOnRoute(ticket.Status) {
		deadline := ticket.ScheduledAt.Add(s.cfg.ScheduleGrace())
		if now.After(deadline) {
			findings[domain.EscalationSLABreach] = finding{
				level:  domain.EscalationL1,
				reason: fmt.Sprintf("scheduled slot passed at %s and technician has not arrived", ticket.ScheduledAt.Format(time.RFC3339)),
			}
		}
	}

	if reentries := failureReentries(history); reentries >= 2 {
		findings[domain.EscalationRepeatFailure] = finding{
			level:  domain.EscalationL2,
			reason: fmt.Sprintf("ticket re-entered repair flow %d times after a failed visit", reentries),
		}
	}

	if inState > s.cfg.StuckCeiling() {
		findings[domain.EscalationStuckState] = finding{
			level:  domain.EscalationL3,
			reason: fmt.Sprintf("stuck in %s for %s", ticket.Status, inState.Round(time.Hour)),
		}
	}

	return findings
}

// pastOnRoute reports whether the lifecycle has progressed beyond the
// on-route leg, i.e. the technician already arrived at least once.
func pastOnRoute(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusNew, domain.TicketStatusAssigned,
		domain.TicketStatusScheduled, domain.TicketStatusOnRoute:
		return false
	}
	return true
}

// failureReentries counts transitions back into DIAGNOSED or REPAIRING that
// happened after an earlier NOT_FIXED outcome.
func failureReentries(history []domain.TicketStatusHistory) int {
	failed := false
	count := 0
	for _, entry := range history {
		switch entry.ToStatus {
		case domain.TicketStatusNotFixed:
			failed = true
		case domain.TicketStatusDiagnosed, domain.TicketStatusRepairing:
			if failed {
				count++
			}
		}
	}
	return count
}

// List returns escalations matching the filter, newest first.
func (s *EscalationService) List(ctx context.Context, filter repository.EscalationFilter) ([]domain.Escalation, error) {
	escalations, err := s.escalations.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return escalations, nil
}

func (s *EscalationService) publishEvent(ctx context.Context, event events.Event) {
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
