package domain

import "time"

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusNew           TicketStatus = "NEW"
	TicketStatusAssigned      TicketStatus = "ASSIGNED"
	TicketStatusScheduled     TicketStatus = "SCHEDULED"
	TicketStatusOnRoute       TicketStatus = "ON_ROUTE"
	TicketStatusArrived       TicketStatus = "ARRIVED"
	TicketStatusInspecting    TicketStatus = "INSPECTING"
	TicketStatusDiagnosed     TicketStatus = "DIAGNOSED"
	TicketStatusRepairing     TicketStatus = "REPAIRING"
	TicketStatusWaitingParts  TicketStatus = "WAITING_PARTS"
	TicketStatusPickupDevice  TicketStatus = "PICKUP_DEVICE"
	TicketStatusInWorkshop    TicketStatus = "IN_WORKSHOP"
	TicketStatusReadyDelivery TicketStatus = "READY_DELIVERY"
	TicketStatusCompleted     TicketStatus = "COMPLETED"
	TicketStatusNotFixed      TicketStatus = "NOT_FIXED"
	TicketStatusCancelled     TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for a field-service repair request. Status is the
// single source of truth for lifecycle position; all mutation goes through
// the transition engine, serialized by the version counter.
type Ticket struct {
	ID              string
	TicketNumber    string
	Status          TicketStatus
	Priority        TicketPriority
	DeviceType      string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	TechnicianID    *string
	ScheduledAt     *time.Time
	ScheduledSlot   string
	DiagnosisNotes  string
	RepairNotes     string
	UnderWarranty   bool
	WarrantyUntil   *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
