package service

import (
	"context"
	"strings"

	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/repository"
	apperrors "github.com/fieldkit/dispatch-service/pkg/util"
)

const (
	minDiagnosisNotesLen  = 10
	minPickupReasonLen    = 10
	minCompletionEvidence = 3
)

// guardRule checks one precondition for a target status.
type guardRule func(ctx context.Context, ticket *domain.Ticket, payload TransitionPayload) error

// GuardEvaluator is a declarative precondition checker keyed by target
// status. Evaluation is side-effect free and short-circuits on the first
// failing rule; all applicable rules must pass together.
type GuardEvaluator struct {
	attachments repository.AttachmentRepository
	otp         repository.OTPStore
	rules       map[domain.TicketStatus][]guardRule
}

// NewGuardEvaluator builds the rule table.
func NewGuardEvaluator(attachments repository.AttachmentRepository, otp repository.OTPStore) *GuardEvaluator {
	g := &GuardEvaluator{attachments: attachments, otp: otp}
	g.rules = map[domain.TicketStatus][]guardRule{
		domain.TicketStatusAssigned:   {requireTechnician},
		domain.TicketStatusScheduled:  {requireSchedule},
		domain.TicketStatusOnRoute:    {requireLocation},
		domain.TicketStatusArrived:    {requireLocation},
		domain.TicketStatusInspecting: {g.requireBeforePhotos},
		domain.TicketStatusDiagnosed:  {requireDiagnosisNotes},
		domain.TicketStatusRepairing:  {requireLocation},
		domain.TicketStatusCompleted: {
			requireLocation,
			g.requireCompletionEvidence,
			g.requireConfirmation,
		},
		domain.TicketStatusNotFixed:     {requireNotFixedReasons},
		domain.TicketStatusPickupDevice: {requirePickupAcknowledgement},
	}
	return g
}

// Evaluate runs all rules registered for the target status against the
// request payload and persisted evidence.
func (g *GuardEvaluator) Evaluate(ctx context.Context, ticket *domain.Ticket, to domain.TicketStatus, payload TransitionPayload) error {
	for _, rule := range g.rules[to] {
		if err := rule(ctx, ticket, payload); err != nil {
			return err
		}
	}
	return nil
}

func requireTechnician(_ context.Context, _ *domain.Ticket, payload TransitionPayload) error {
	if payload.TechnicianID == nil || strings.TrimSpace(*payload.TechnicianID) == "" {
		return apperrors.NewGuardViolation("technicianId", "technician required")
	}
	return nil
}

func requireSchedule(_ context.Context, _ *domain.Ticket, payload TransitionPayload) error {
	if payload.ScheduledAt == nil {
		return apperrors.NewGuardViolation("scheduledAt", "scheduled date required")
	}
	return nil
}

func requireLocation(_ context.Context, _ *domain.Ticket, payload TransitionPayload) error {
	if payload.Location == nil {
		return apperrors.NewGuardViolation("location", "latitude and longitude required")
	}
	return nil
}

func requireDiagnosisNotes(_ context.Context, _ *domain.Ticket, payload TransitionPayload) error {
	if len(strings.TrimSpace(payload.DiagnosisNotes)) < minDiagnosisNotesLen {
		return apperrors.NewGuardViolation("diagnosisNotes", "at least 10 characters required")
	}
	return nil
}

func (g *GuardEvaluator) requireBeforePhotos(ctx context.Context, ticket *domain.Ticket, payload TransitionPayload) error {
	persisted, err := g.attachments.CountByTicket(ctx, ticket.ID, domain.AttachmentBeforeInspection)
	if err != nil {
		return apperrors.MapError(err)
	}
	if persisted+len(payload.Photos) < 1 {
		return apperrors.NewGuardViolation("photos", "at least 1 before-inspection photo required")
	}
	return nil
}

func (g *GuardEvaluator) requireCompletionEvidence(ctx context.Context, ticket *domain.Ticket, payload TransitionPayload) error {
	persisted, err := g.attachments.CountAllByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if persisted+len(payload.Photos) < minCompletionEvidence {
		return apperrors.NewGuardViolation("photos", "at least 3 photos required across before/during/after")
	}
	return nil
}

func (g *GuardEvaluator) requireConfirmation(ctx context.Context, ticket *domain.Ticket, payload TransitionPayload) error {
	switch payload.ConfirmationType {
	case ConfirmationSignature:
		if strings.TrimSpace(payload.Signature) == "" {
			return apperrors.NewGuardViolation("signature", "signature payload required")
		}
		return nil
	case ConfirmationOTP:
		ok, err := g.otp.Verify(ctx, ticket.ID, payload.OTPCode)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !ok {
			return apperrors.NewOtpMismatchOrExpired()
		}
		return nil
	}
	return apperrors.NewGuardViolation("confirmationType", "must be SIGNATURE or OTP")
}

func requireNotFixedReasons(_ context.Context, _ *domain.Ticket, payload TransitionPayload) error {
	if len(payload.Reasons) < 1 {
		return apperrors.NewGuardViolation("reasons", "at least 1 required")
	}
	for _, reason := range payload.Reasons {
		if !domain.ValidNotFixedReason(reason) {
			return apperrors.NewGuardViolation("reasons", "unknown reason code: "+string(reason))
		}
	}
	return nil
}

func requirePickupAcknowledgement(_ context.Context, _ *domain.Ticket, payload TransitionPayload) error {
	if !payload.CustomerAcknowledged {
		return apperrors.NewGuardViolation("customerAcknowledged", "customer acknowledgement required")
	}
	if len(strings.TrimSpace(payload.Reason)) < minPickupReasonLen {
		return apperrors.NewGuardViolation("reason", "at least 10 characters required")
	}
	return nil
}
