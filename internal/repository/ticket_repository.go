package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// ErrVersionConflict is returned when an optimistic-locked save observes a
// stored version ahead of the one loaded by the caller.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketRepository encapsulates ticket persistence with optimistic locking.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	// CommitTransition persists the new status together with its history
	// entry in one transaction. Both land or neither does.
	CommitTransition(ctx context.Context, ticket *domain.Ticket, expectedVersion int64, entry *domain.TicketStatusHistory) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, status, priority, device_type, customer_name, customer_phone,
            customer_address, technician_id, scheduled_at, scheduled_slot, diagnosis_notes, repair_notes,
            under_warranty, warranty_until, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,1)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Status,
		ticket.Priority,
		ticket.DeviceType,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.CustomerAddress,
		ticket.TechnicianID,
		ticket.ScheduledAt,
		ticket.ScheduledSlot,
		ticket.DiagnosisNotes,
		ticket.RepairNotes,
		ticket.UnderWarranty,
		ticket.WarrantyUntil,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

const ticketColumns = `id, ticket_number, status, priority, device_type, customer_name, customer_phone,
               customer_address, technician_id, scheduled_at, scheduled_slot, diagnosis_notes, repair_notes,
               under_warranty, warranty_until, version, created_at, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListActive returns all tickets in a non-terminal status, used by the
// escalation sweep.
func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
	         WHERE status NOT IN ($1,$2,$3) ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query,
		domain.TicketStatusCompleted,
		domain.TicketStatusNotFixed,
		domain.TicketStatusCancelled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CommitTransition(ctx context.Context, ticket *domain.Ticket, expectedVersion int64, entry *domain.TicketStatusHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
        UPDATE tickets SET status=$1, technician_id=$2, scheduled_at=$3, scheduled_slot=$4,
            diagnosis_notes=$5, repair_notes=$6, version=version+1, updated_at=NOW()
        WHERE id=$7 AND version=$8
        RETURNING version, updated_at`
	err = tx.QueryRow(ctx, update,
		ticket.Status,
		ticket.TechnicianID,
		ticket.ScheduledAt,
		ticket.ScheduledSlot,
		ticket.DiagnosisNotes,
		ticket.RepairNotes,
		ticket.ID,
		expectedVersion,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return err
	}

	if err := insertStatusHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Status,
		&ticket.Priority,
		&ticket.DeviceType,
		&ticket.CustomerName,
		&ticket.CustomerPhone,
		&ticket.CustomerAddress,
		&ticket.TechnicianID,
		&ticket.ScheduledAt,
		&ticket.ScheduledSlot,
		&ticket.DiagnosisNotes,
		&ticket.RepairNotes,
		&ticket.UnderWarranty,
		&ticket.WarrantyUntil,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
