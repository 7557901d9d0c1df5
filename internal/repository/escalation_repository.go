package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// EscalationFilter captures listing parameters.
type EscalationFilter struct {
	TicketID *string
	Type     *domain.EscalationType
	Level    *domain.EscalationLevel
	Resolved *bool
	Limit    int
	Offset   int
}

// EscalationRepository persists monitor findings.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.Escalation) error
	FindUnresolved(ctx context.Context, ticketID string, escalationType domain.EscalationType) (*domain.Escalation, error)
	ListUnresolvedByTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error)
	Resolve(ctx context.Context, id string, at time.Time) error
	ListWithFilter(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository constructs repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        INSERT INTO escalations (ticket_id, level, type, reason, resolved)
        VALUES ($1,$2,$3,$4,false)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.Level,
		escalation.Type,
		escalation.Reason,
	).Scan(&escalation.ID, &escalation.CreatedAt)
}

const escalationColumns = `id, ticket_id, level, type, reason, resolved, resolved_at, created_at`

func (r *escalationRepository) FindUnresolved(ctx context.Context, ticketID string, escalationType domain.EscalationType) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + `
        FROM escalations WHERE ticket_id=$1 AND type=$2 AND resolved=false`
	var escalation domain.Escalation
	if err := scanEscalation(r.pool.QueryRow(ctx, query, ticketID, escalationType), &escalation); err != nil {
		return nil, err
	}
	return &escalation, nil
}

func (r *escalationRepository) ListUnresolvedByTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error) {
	ticket := ticketID
	resolved := false
	return r.ListWithFilter(ctx, EscalationFilter{TicketID: &ticket, Resolved: &resolved, Limit: 100})
}

func (r *escalationRepository) Resolve(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE escalations SET resolved=true, resolved_at=$1 WHERE id=$2 AND resolved=false`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}

func (r *escalationRepository) ListWithFilter(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error) {
	base := `SELECT ` + escalationColumns + ` FROM escalations`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}
	if filter.Level != nil {
		args = append(args, *filter.Level)
		clauses = append(clauses, fmt.Sprintf("level=$%d", len(args)))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		clauses = append(clauses, fmt.Sprintf("resolved=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Escalation
	for rows.Next() {
		var escalation domain.Escalation
		if err := scanEscalation(rows, &escalation); err != nil {
			return nil, err
		}
		result = append(result, escalation)
	}
	return result, rows.Err()
}

func scanEscalation(row rowScanner, escalation *domain.Escalation) error {
	return row.Scan(
		&escalation.ID,
		&escalation.TicketID,
		&escalation.Level,
		&escalation.Type,
		&escalation.Reason,
		&escalation.Resolved,
		&escalation.ResolvedAt,
		&escalation.CreatedAt,
	)
}
