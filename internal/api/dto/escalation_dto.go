package dto

import (
	"time"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// EscalationResponse represents one monitor finding.
type EscalationResponse struct {
	ID         string                 `json:"id"`
	TicketID   string                 `json:"ticket_id"`
	Level      domain.EscalationLevel `json:"level"`
	Type       domain.EscalationType  `json:"type"`
	Reason     string                 `json:"reason"`
	Resolved   bool                   `json:"resolved"`
	ResolvedAt *time.Time             `json:"resolved_at"`
	CreatedAt  time.Time              `json:"created_at"`
}
