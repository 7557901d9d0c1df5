package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// TicketHistoryRepository stores append-only transition audit entries.
// Entries are never updated or deleted.
type TicketHistoryRepository interface {
	Append(ctx context.Context, entry *domain.TicketStatusHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Append(ctx context.Context, entry *domain.TicketStatusHistory) error {
	return insertStatusHistory(ctx, r.pool, entry)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error) {
	const query = `
        SELECT id, ticket_id, from_status, to_status, actor_id, actor_role, notes,
               latitude, longitude, override, created_at
        FROM ticket_status_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketStatusHistory
	for rows.Next() {
		var entry domain.TicketStatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.Notes,
			&entry.Latitude,
			&entry.Longitude,
			&entry.Override,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// queryRower is satisfied by both pgxpool.Pool and pgx.Tx so the history
// insert can participate in the transition commit transaction.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertStatusHistory(ctx context.Context, q queryRower, entry *domain.TicketStatusHistory) error {
	const query = `
        INSERT INTO ticket_status_history (ticket_id, from_status, to_status, actor_id, actor_role,
            notes, latitude, longitude, override)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.TicketID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.ActorRole,
		entry.Notes,
		entry.Latitude,
		entry.Longitude,
		entry.Override,
	).Scan(&entry.ID, &entry.CreatedAt)
}
