package events

import (
	"time"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventEscalationRaised   EventType = "escalation_raised"
	EventEscalationResolved EventType = "escalation_resolved"
	EventOTPIssued          EventType = "otp_issued"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string           `json:"id"`
	Role domain.ActorRole `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Priority     domain.TicketPriority `json:"priority"`
	DeviceType   string                `json:"device_type"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	FromStatus domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus `json:"to_status"`
	Notes      string              `json:"notes,omitempty"`
	Override   bool                `json:"override,omitempty"`
}

// EscalationRaisedPayload payload.
type EscalationRaisedPayload struct {
	EscalationID string                 `json:"escalation_id"`
	Level        domain.EscalationLevel `json:"level"`
	Type         domain.EscalationType  `json:"type"`
	Reason       string                 `json:"reason"`
}

// EscalationResolvedPayload payload.
type EscalationResolvedPayload struct {
	EscalationID string                `json:"escalation_id"`
	Type         domain.EscalationType `json:"type"`
}

// OTPIssuedPayload payload. The code rides on the event so the SMS
// collaborator can deliver it; it is never returned to the requesting actor.
type OTPIssuedPayload struct {
	Code          string    `json:"code"`
	CustomerPhone string    `json:"customer_phone"`
	ExpiresAt     time.Time `json:"expires_at"`
}
