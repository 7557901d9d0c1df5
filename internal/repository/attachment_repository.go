package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// AttachmentRepository persists photo metadata. Bytes live in external
// storage; guards only consume counts.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.AttachmentReference) error
	CountByTicket(ctx context.Context, ticketID string, kind domain.AttachmentKind) (int, error)
	CountAllByTicket(ctx context.Context, ticketID string) (int, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.AttachmentReference) error {
	const query = `
        INSERT INTO attachment_references (ticket_id, kind, storage_key)
        VALUES ($1,$2,$3)
        RETURNING id, uploaded_at`
	return r.pool.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.Kind,
		attachment.StorageKey,
	).Scan(&attachment.ID, &attachment.UploadedAt)
}

func (r *attachmentRepository) CountByTicket(ctx context.Context, ticketID string, kind domain.AttachmentKind) (int, error) {
	const query = `SELECT COUNT(*) FROM attachment_references WHERE ticket_id=$1 AND kind=$2`
	var count int
	err := r.pool.QueryRow(ctx, query, ticketID, kind).Scan(&count)
	return count, err
}

func (r *attachmentRepository) CountAllByTicket(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attachment_references WHERE ticket_id=$1`
	var count int
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(&count)
	return count, err
}
