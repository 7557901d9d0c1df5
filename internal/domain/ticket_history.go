package domain

import "time"

// ActorRole identifies who requested a transition.
type ActorRole string

const (
	RoleCustomer   ActorRole = "CUSTOMER"
	RoleDispatcher ActorRole = "DISPATCHER"
	RoleTechnician ActorRole = "TECHNICIAN"
	RoleAdmin      ActorRole = "ADMIN"
)

// Actor is the authenticated principal behind a request.
type Actor struct {
	ID   string
	Role ActorRole
}

// TicketStatusHistory is an immutable audit trail entry for one committed
// transition. The ascending created_at sequence defines the ticket's full
// lifecycle and is the sole source for time-in-state computations.
type TicketStatusHistory struct {
	ID         string
	TicketID   string
	FromStatus TicketStatus
	ToStatus   TicketStatus
	ActorID    string
	ActorRole  ActorRole
	Notes      string
	Latitude   *float64
	Longitude  *float64
	Override   bool
	CreatedAt  time.Time
}
