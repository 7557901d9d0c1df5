package domain

// transitions is the single authoritative adjacency table for the ticket
// lifecycle. Edge legality is decided here and nowhere else; handlers that
// display "next actions" consult the same table the engine enforces.
var transitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:           {TicketStatusAssigned, TicketStatusCancelled},
	TicketStatusAssigned:      {TicketStatusScheduled, TicketStatusCancelled},
	TicketStatusScheduled:     {TicketStatusOnRoute, TicketStatusCancelled},
	TicketStatusOnRoute:       {TicketStatusArrived},
	TicketStatusArrived:       {TicketStatusInspecting},
	TicketStatusInspecting:    {TicketStatusDiagnosed},
	TicketStatusDiagnosed:     {TicketStatusRepairing, TicketStatusWaitingParts, TicketStatusPickupDevice, TicketStatusNotFixed},
	TicketStatusWaitingParts:  {TicketStatusRepairing, TicketStatusNotFixed},
	TicketStatusRepairing:     {TicketStatusCompleted, TicketStatusWaitingParts, TicketStatusNotFixed},
	TicketStatusPickupDevice:  {TicketStatusInWorkshop},
	TicketStatusInWorkshop:    {TicketStatusReadyDelivery},
	TicketStatusReadyDelivery: {TicketStatusCompleted},
	TicketStatusCompleted:     {},
	TicketStatusNotFixed:      {},
	TicketStatusCancelled:     {},
}

// IsTerminal reports whether a status accepts no further ordinary
// transitions.
func IsTerminal(status TicketStatus) bool {
	switch status {
	case TicketStatusCompleted, TicketStatusNotFixed, TicketStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the edge from -> to exists in the lifecycle
// graph. Cancellation of any non-terminal status is always a legal edge;
// the engine restricts it to administrative roles.
func CanTransition(from, to TicketStatus) bool {
	if to == TicketStatusCancelled {
		return !IsTerminal(from)
	}
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the ordinary outgoing edges for a status. The slice
// is a copy; callers may not mutate the graph.
func NextStatuses(from TicketStatus) []TicketStatus {
	next := transitions[from]
	out := make([]TicketStatus, len(next))
	copy(out, next)
	return out
}

// NotFixedReason is a closed set of codes explaining an unrepairable visit.
type NotFixedReason string

const (
	ReasonPartsUnavailable   NotFixedReason = "PARTS_UNAVAILABLE"
	ReasonDeviceUnrepairable NotFixedReason = "DEVICE_UNREPAIRABLE"
	ReasonCustomerDeclined   NotFixedReason = "CUSTOMER_DECLINED"
	ReasonWarrantyVoid       NotFixedReason = "WARRANTY_VOID"
	ReasonSafetyRisk         NotFixedReason = "SAFETY_RISK"
)

var notFixedReasons = map[NotFixedReason]struct{}{
	ReasonPartsUnavailable:   {},
	ReasonDeviceUnrepairable: {},
	ReasonCustomerDeclined:   {},
	ReasonWarrantyVoid:       {},
	ReasonSafetyRisk:         {},
}

// ValidNotFixedReason reports whether a reason code belongs to the closed
// set. Unknown codes are rejected at the guard, never stored.
func ValidNotFixedReason(reason NotFixedReason) bool {
	_, ok := notFixedReasons[reason]
	return ok
}
