package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/repository"
)

// memStore is an in-memory TicketRepository + TicketHistoryRepository with
// the same optimistic-locking semantics as the postgres implementation.
type memStore struct {
	mu          sync.Mutex
	tickets     map[string]*domain.Ticket
	history     map[string][]domain.TicketStatusHistory
	onLoad      func()
	failHistory map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		tickets:     make(map[string]*domain.Ticket),
		history:     make(map[string][]domain.TicketStatusHistory),
		failHistory: make(map[string]bool),
	}
}

func (m *memStore) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.Version = 1
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	m.tickets[ticket.ID] = &clone
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	stored, ok := m.tickets[id]
	var clone domain.Ticket
	if ok {
		clone = *stored
	}
	m.mu.Unlock()
	if m.onLoad != nil {
		m.onLoad()
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &clone, nil
}

func (m *memStore) ListActive(_ context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if !domain.IsTerminal(ticket.Status) {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memStore) CommitTransition(_ context.Context, ticket *domain.Ticket, expectedVersion int64, entry *domain.TicketStatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tickets[ticket.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	ticket.Version = expectedVersion + 1
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	m.tickets[ticket.ID] = &clone

	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.history[ticket.ID] = append(m.history[ticket.ID], *entry)
	return nil
}

func (m *memStore) Append(_ context.Context, entry *domain.TicketStatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.history[entry.TicketID] = append(m.history[entry.TicketID], *entry)
	return nil
}

func (m *memStore) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failHistory[ticketID] {
		return nil, errors.New("history unavailable")
	}
	entries := append([]domain.TicketStatusHistory{}, m.history[ticketID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// memEscalations is an in-memory EscalationRepository.
type memEscalations struct {
	mu    sync.Mutex
	items []*domain.Escalation
}

func newMemEscalations() *memEscalations {
	return &memEscalations{}
}

func (m *memEscalations) Create(_ context.Context, escalation *domain.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	escalation.ID = uuid.NewString()
	escalation.CreatedAt = time.Now()
	clone := *escalation
	m.items = append(m.items, &clone)
	return nil
}

func (m *memEscalations) FindUnresolved(_ context.Context, ticketID string, escalationType domain.EscalationType) (*domain.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.TicketID == ticketID && item.Type == escalationType && !item.Resolved {
			clone := *item
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memEscalations) ListUnresolvedByTicket(_ context.Context, ticketID string) ([]domain.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Escalation
	for _, item := range m.items {
		if item.TicketID == ticketID && !item.Resolved {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *memEscalations) Resolve(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id && !item.Resolved {
			item.Resolved = true
			resolvedAt := at
			item.ResolvedAt = &resolvedAt
		}
	}
	return nil
}

func (m *memEscalations) ListWithFilter(_ context.Context, filter repository.EscalationFilter) ([]domain.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Escalation
	for _, item := range m.items {
		if filter.TicketID != nil && item.TicketID != *filter.TicketID {
			continue
		}
		if filter.Type != nil && item.Type != *filter.Type {
			continue
		}
		if filter.Level != nil && item.Level != *filter.Level {
			continue
		}
		if filter.Resolved != nil && item.Resolved != *filter.Resolved {
			continue
		}
		result = append(result, *item)
	}
	return result, nil
}

func (m *memEscalations) unresolvedCount(ticketID string, escalationType domain.EscalationType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, item := range m.items {
		if item.TicketID == ticketID && item.Type == escalationType && !item.Resolved {
			count++
		}
	}
	return count
}

// fakeAttachments serves counts without a database.
type fakeAttachments struct {
	mu     sync.Mutex
	counts map[string]map[domain.AttachmentKind]int
}

func newFakeAttachments() *fakeAttachments {
	return &fakeAttachments{counts: make(map[string]map[domain.AttachmentKind]int)}
}

func (f *fakeAttachments) add(ticketID string, kind domain.AttachmentKind, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[ticketID] == nil {
		f.counts[ticketID] = make(map[domain.AttachmentKind]int)
	}
	f.counts[ticketID][kind] += n
}

func (f *fakeAttachments) Create(_ context.Context, attachment *domain.AttachmentReference) error {
	attachment.ID = uuid.NewString()
	attachment.UploadedAt = time.Now()
	f.add(attachment.TicketID, attachment.Kind, 1)
	return nil
}

func (f *fakeAttachments) CountByTicket(_ context.Context, ticketID string, kind domain.AttachmentKind) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[ticketID][kind], nil
}

func (f *fakeAttachments) CountAllByTicket(_ context.Context, ticketID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, count := range f.counts[ticketID] {
		total += count
	}
	return total, nil
}

// fakeOTP verifies against a fixed code per ticket.
type fakeOTP struct {
	mu    sync.Mutex
	codes map[string]string
	ttl   time.Duration
}

func newFakeOTP() *fakeOTP {
	return &fakeOTP{codes: make(map[string]string), ttl: 5 * time.Minute}
}

func (f *fakeOTP) Issue(_ context.Context, ticketID string) (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := "123456"
	f.codes[ticketID] = code
	return code, time.Now().Add(f.ttl), nil
}

func (f *fakeOTP) Verify(_ context.Context, ticketID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	expected, ok := f.codes[ticketID]
	return ok && expected == code, nil
}

func (f *fakeOTP) expire(ticketID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, ticketID)
}
