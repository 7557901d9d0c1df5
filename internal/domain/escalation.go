package domain

import "time"

// EscalationLevel ranks anomaly severity.
type EscalationLevel string

const (
	EscalationL1 EscalationLevel = "L1"
	EscalationL2 EscalationLevel = "L2"
	EscalationL3 EscalationLevel = "L3"
)

// EscalationType classifies the anomaly the monitor detected.
type EscalationType string

const (
	EscalationAssignmentDelay EscalationType = "assignment_delay"
	EscalationSLABreach       EscalationType = "sla_breach"
	EscalationRepeatFailure   EscalationType = "repeat_failure"
	EscalationStuckState      EscalationType = "stuck_state"
)

// Escalation flags a ticket needing human intervention. At most one
// unresolved escalation per (ticket, type) exists at any time.
type Escalation struct {
	ID         string
	TicketID   string
	Level      EscalationLevel
	Type       EscalationType
	Reason     string
	Resolved   bool
	ResolvedAt *time.Time
	CreatedAt  time.Time
}
