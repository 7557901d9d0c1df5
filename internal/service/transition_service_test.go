package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/observability"
	apperrors "github.com/fieldkit/dispatch-service/pkg/util"
)

func newTestEngine(store *memStore, attachments *fakeAttachments, otp *fakeOTP) *TransitionService {
	return NewTransitionService(TransitionDependencies{
		TicketRepo:   store,
		HistoryRepo:  store,
		Guards:       NewGuardEvaluator(attachments, otp),
		Logger:       zap.NewNop(),
		Metrics:      observability.NewMetrics(),
		QueryTimeout: time.Second,
	})
}

func seedTicket(t *testing.T, store *memStore, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		TicketNumber: "RPT-TEST0001",
		Status:       status,
		Priority:     domain.TicketPriorityMedium,
		DeviceType:   "refrigerator",
		CustomerName: "A. Customer",
	}
	if err := store.Create(context.Background(), ticket); err != nil {
		t.Fatal(err)
	}
	return ticket
}

func TestRequestTransitionInvalidEdge(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	ticket := seedTicket(t, store, domain.TicketStatusNew)
	dispatcher := domain.Actor{ID: "d1", Role: domain.RoleDispatcher}

	_, err := engine.RequestTransition(context.Background(), ticket.ID, dispatcher, domain.TicketStatusScheduled, TransitionPayload{})
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}

	stored, _ := store.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusNew || stored.Version != 1 {
		t.Errorf("ticket mutated on rejected edge: status=%s version=%d", stored.Status, stored.Version)
	}
	if history, _ := store.ListByTicket(context.Background(), ticket.ID); len(history) != 0 {
		t.Errorf("history written on rejected edge: %d entries", len(history))
	}
}

func TestRequestTransitionGuardFailureLeavesNoTrace(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	ticket := seedTicket(t, store, domain.TicketStatusNew)
	dispatcher := domain.Actor{ID: "d1", Role: domain.RoleDispatcher}

	_, err := engine.RequestTransition(context.Background(), ticket.ID, dispatcher, domain.TicketStatusAssigned, TransitionPayload{})
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != "GUARD_VIOLATION" {
		t.Fatalf("expected GUARD_VIOLATION, got %v", err)
	}

	stored, _ := store.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusNew || stored.Version != 1 {
		t.Errorf("ticket mutated on guard failure: status=%s version=%d", stored.Status, stored.Version)
	}
	if history, _ := store.ListByTicket(context.Background(), ticket.ID); len(history) != 0 {
		t.Errorf("history written on guard failure: %d entries", len(history))
	}
}

func TestRequestTransitionSuccess(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	ticket := seedTicket(t, store, domain.TicketStatusNew)
	dispatcher := domain.Actor{ID: "d1", Role: domain.RoleDispatcher}

	tech := "tech-9"
	result, err := engine.RequestTransition(context.Background(), ticket.ID, dispatcher, domain.TicketStatusAssigned, TransitionPayload{TechnicianID: &tech})
	if err != nil {
		t.Fatal(err)
	}
	if result.Ticket.Status != domain.TicketStatusAssigned {
		t.Errorf("status = %s, want ASSIGNED", result.Ticket.Status)
	}
	if result.Ticket.Version != 2 {
		t.Errorf("version = %d, want 2", result.Ticket.Version)
	}
	if result.Ticket.TechnicianID == nil || *result.Ticket.TechnicianID != tech {
		t.Errorf("technician not applied: %v", result.Ticket.TechnicianID)
	}

	history, _ := store.ListByTicket(context.Background(), ticket.ID)
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	entry := history[0]
	if entry.FromStatus != domain.TicketStatusNew || entry.ToStatus != domain.TicketStatusAssigned {
		t.Errorf("history edge = %s -> %s", entry.FromStatus, entry.ToStatus)
	}
	if entry.ActorID != "d1" || entry.ActorRole != domain.RoleDispatcher {
		t.Errorf("history actor = %s/%s", entry.ActorID, entry.ActorRole)
	}
}

func TestRequestTransitionRoleRestriction(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	ticket := seedTicket(t, store, domain.TicketStatusNew)

	tech := "tech-9"
	payload := TransitionPayload{TechnicianID: &tech}

	technician := domain.Actor{ID: "t1", Role: domain.RoleTechnician}
	_, err := engine.RequestTransition(context.Background(), ticket.ID, technician, domain.TicketStatusAssigned, payload)
	if domainErr := apperrors.ToDomainError(err); domainErr == nil || domainErr.Code != "FORBIDDEN" {
		t.Errorf("technician assigning: expected FORBIDDEN, got %v", err)
	}

	admin := domain.Actor{ID: "a1", Role: domain.RoleAdmin}
	if _, err := engine.RequestTransition(context.Background(), ticket.ID, admin, domain.TicketStatusAssigned, payload); err != nil {
		t.Errorf("admin assigning: unexpected error: %v", err)
	}
}

func TestRequestTransitionTerminalRejected(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	ticket := seedTicket(t, store, domain.TicketStatusCompleted)
	admin := domain.Actor{ID: "a1", Role: domain.RoleAdmin}

	_, err := engine.RequestTransition(context.Background(), ticket.ID, admin, domain.TicketStatusRepairing, TransitionPayload{})
	if domainErr := apperrors.ToDomainError(err); domainErr == nil || domainErr.Code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestRequestTransitionAdminOverride(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	ticket := seedTicket(t, store, domain.TicketStatusCancelled)

	dispatcher := domain.Actor{ID: "d1", Role: domain.RoleDispatcher}
	_, err := engine.RequestTransition(context.Background(), ticket.ID, dispatcher, domain.TicketStatusNew, TransitionPayload{Override: true})
	if domainErr := apperrors.ToDomainError(err); domainErr == nil || domainErr.Code != "INVALID_TRANSITION" {
		t.Errorf("dispatcher override: expected INVALID_TRANSITION, got %v", err)
	}

	admin := domain.Actor{ID: "a1", Role: domain.RoleAdmin}
	result, err := engine.RequestTransition(context.Background(), ticket.ID, admin, domain.TicketStatusNew, TransitionPayload{Override: true, Notes: "cancelled by mistake"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Ticket.Status != domain.TicketStatusNew {
		t.Errorf("status = %s, want NEW", result.Ticket.Status)
	}
	if !result.History.Override {
		t.Error("override flag not recorded in history")
	}
}

func TestRequestTransitionNotFound(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	actor := domain.Actor{ID: "d1", Role: domain.RoleDispatcher}

	_, err := engine.RequestTransition(context.Background(), "no-such-id", actor, domain.TicketStatusAssigned, TransitionPayload{})
	if domainErr := apperrors.ToDomainError(err); domainErr == nil || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRequestTransitionConcurrentConflict(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())
	ticket := seedTicket(t, store, domain.TicketStatusNew)
	dispatcher := domain.Actor{ID: "d1", Role: domain.RoleDispatcher}

	// Hold both requests at the load point so each sees version 1.
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.onLoad = func() {
		barrier.Done()
		barrier.Wait()
	}

	tech := "tech-9"
	payload := TransitionPayload{TechnicianID: &tech}

	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := engine.RequestTransition(context.Background(), ticket.ID, dispatcher, domain.TicketStatusAssigned, payload)
			errCh <- err
		}()
	}

	var failures []error
	successes := 0
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			failures = append(failures, err)
		} else {
			successes++
		}
	}

	if successes != 1 || len(failures) != 1 {
		t.Fatalf("successes = %d, failures = %d, want exactly one of each", successes, len(failures))
	}
	if domainErr := apperrors.ToDomainError(failures[0]); domainErr.Code != "CONCURRENT_MODIFICATION" {
		t.Errorf("loser error = %s, want CONCURRENT_MODIFICATION", domainErr.Code)
	}

	store.onLoad = nil
	stored, _ := store.GetByID(context.Background(), ticket.ID)
	if stored.Version != 2 {
		t.Errorf("version = %d, want 2 (single committed transition)", stored.Version)
	}
	if history, _ := store.ListByTicket(context.Background(), ticket.ID); len(history) != 1 {
		t.Errorf("history entries = %d, want 1", len(history))
	}
}

func TestRequestTransitionOTPFailureKeepsTicket(t *testing.T) {
	store := newMemStore()
	attachments := newFakeAttachments()
	otp := newFakeOTP()
	engine := newTestEngine(store, attachments, otp)

	ticket := seedTicket(t, store, domain.TicketStatusRepairing)
	attachments.add(ticket.ID, domain.AttachmentBeforeInspection, 3)
	technician := domain.Actor{ID: "t1", Role: domain.RoleTechnician}

	payload := TransitionPayload{
		Location:         &GeoPoint{Latitude: 35.7, Longitude: 51.4},
		ConfirmationType: ConfirmationOTP,
		OTPCode:          "999999",
	}
	_, err := engine.RequestTransition(context.Background(), ticket.ID, technician, domain.TicketStatusCompleted, payload)
	if domainErr := apperrors.ToDomainError(err); domainErr == nil || domainErr.Code != "OTP_MISMATCH_OR_EXPIRED" {
		t.Fatalf("expected OTP_MISMATCH_OR_EXPIRED, got %v", err)
	}

	stored, _ := store.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusRepairing || stored.Version != 1 {
		t.Errorf("ticket mutated on failed confirmation: status=%s version=%d", stored.Status, stored.Version)
	}

	// A correct code completes the same request.
	code, _, err := otp.Issue(context.Background(), ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	payload.OTPCode = code
	result, err := engine.RequestTransition(context.Background(), ticket.ID, technician, domain.TicketStatusCompleted, payload)
	if err != nil {
		t.Fatal(err)
	}
	if result.Ticket.Status != domain.TicketStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", result.Ticket.Status)
	}
	history, _ := store.ListByTicket(context.Background(), ticket.ID)
	if len(history) != 1 || history[0].ToStatus != domain.TicketStatusCompleted {
		t.Errorf("completion history not appended: %v", history)
	}
}

func TestNextActions(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, newFakeAttachments(), newFakeOTP())

	tests := []struct {
		name   string
		status domain.TicketStatus
		role   domain.ActorRole
		want   []domain.TicketStatus
	}{
		{
			name:   "dispatcher on new",
			status: domain.TicketStatusNew,
			role:   domain.RoleDispatcher,
			want:   []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusCancelled},
		},
		{
			name:   "technician on new",
			status: domain.TicketStatusNew,
			role:   domain.RoleTechnician,
			want:   []domain.TicketStatus{},
		},
		{
			name:   "technician on diagnosed",
			status: domain.TicketStatusDiagnosed,
			role:   domain.RoleTechnician,
			want: []domain.TicketStatus{
				domain.TicketStatusRepairing, domain.TicketStatusWaitingParts,
				domain.TicketStatusPickupDevice, domain.TicketStatusNotFixed,
			},
		},
		{
			name:   "admin on repairing includes cancel",
			status: domain.TicketStatusRepairing,
			role:   domain.RoleAdmin,
			want: []domain.TicketStatus{
				domain.TicketStatusCompleted, domain.TicketStatusWaitingParts,
				domain.TicketStatusNotFixed, domain.TicketStatusCancelled,
			},
		},
		{
			name:   "terminal has no actions",
			status: domain.TicketStatusCompleted,
			role:   domain.RoleAdmin,
			want:   []domain.TicketStatus{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := seedTicket(t, store, tt.status)
			actions, err := engine.NextActions(context.Background(), ticket.ID, domain.Actor{ID: "x", Role: tt.role})
			if err != nil {
				t.Fatal(err)
			}
			if len(actions) != len(tt.want) {
				t.Fatalf("actions = %v, want %v", actions, tt.want)
			}
			for i := range tt.want {
				if actions[i] != tt.want[i] {
					t.Errorf("actions[%d] = %s, want %s", i, actions[i], tt.want[i])
				}
			}
		})
	}
}

func TestRequestTransitionTimeoutMapsToPersistenceTimeout(t *testing.T) {
	store := newMemStore()
	ticket := seedTicket(t, store, domain.TicketStatusNew)
	dispatcher := domain.Actor{ID: "d1", Role: domain.RoleDispatcher}

	engine := NewTransitionService(TransitionDependencies{
		TicketRepo:   &slowCommitStore{memStore: store},
		HistoryRepo:  store,
		Guards:       NewGuardEvaluator(newFakeAttachments(), newFakeOTP()),
		Logger:       zap.NewNop(),
		Metrics:      observability.NewMetrics(),
		QueryTimeout: time.Second,
	})

	tech := "tech-9"
	_, err := engine.RequestTransition(context.Background(), ticket.ID, dispatcher, domain.TicketStatusAssigned, TransitionPayload{TechnicianID: &tech})
	if domainErr := apperrors.ToDomainError(err); domainErr == nil || domainErr.Code != "PERSISTENCE_TIMEOUT" {
		t.Fatalf("expected PERSISTENCE_TIMEOUT, got %v", err)
	}
}

// slowCommitStore fails every commit with a deadline error.
type slowCommitStore struct {
	*memStore
}

func (s *slowCommitStore) CommitTransition(context.Context, *domain.Ticket, int64, *domain.TicketStatusHistory) error {
	return context.DeadlineExceeded
}
