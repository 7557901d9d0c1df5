package dto

import (
	"time"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Priority        domain.TicketPriority `json:"priority"`
	DeviceType      string                `json:"device_type"`
	CustomerName    string                `json:"customer_name"`
	CustomerPhone   string                `json:"customer_phone"`
	CustomerAddress string                `json:"customer_address"`
	UnderWarranty   bool                  `json:"under_warranty"`
	WarrantyUntil   *time.Time            `json:"warranty_until"`
}

// TransitionRequest is the payload for POST /tickets/:id/transition.
type TransitionRequest struct {
	ToStatus             domain.TicketStatus     `json:"to_status"`
	Location             *LocationPayload        `json:"location"`
	Photos               []string                `json:"photos"`
	TechnicianID         *string                 `json:"technician_id"`
	ScheduledAt          *time.Time              `json:"scheduled_at"`
	ScheduledSlot        string                  `json:"scheduled_slot"`
	DiagnosisNotes       string                  `json:"diagnosis_notes"`
	ConfirmationType     string                  `json:"confirmation_type"`
	Signature            string                  `json:"signature"`
	OTPCode              string                  `json:"otp_code"`
	Reasons              []domain.NotFixedReason `json:"reasons"`
	CustomerAcknowledged bool                    `json:"customer_acknowledged"`
	Reason               string                  `json:"reason"`
	Notes                string                  `json:"notes"`
	Override             bool                    `json:"override"`
}

// LocationPayload is a GPS snapshot.
type LocationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegisterAttachmentRequest payload.
type RegisterAttachmentRequest struct {
	Kind       domain.AttachmentKind `json:"kind"`
	StorageKey string                `json:"storage_key"`
}

// TicketResponse is the ticket snapshot returned by the API.
type TicketResponse struct {
	ID              string                `json:"id"`
	TicketNumber    string                `json:"ticket_number"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	DeviceType      string                `json:"device_type"`
	CustomerName    string                `json:"customer_name"`
	CustomerPhone   string                `json:"customer_phone"`
	CustomerAddress string                `json:"customer_address"`
	TechnicianID    *string               `json:"technician_id"`
	ScheduledAt     *time.Time            `json:"scheduled_at"`
	ScheduledSlot   string                `json:"scheduled_slot,omitempty"`
	DiagnosisNotes  string                `json:"diagnosis_notes,omitempty"`
	RepairNotes     string                `json:"repair_notes,omitempty"`
	UnderWarranty   bool                  `json:"under_warranty"`
	WarrantyUntil   *time.Time            `json:"warranty_until"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID         string              `json:"id"`
	FromStatus domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus `json:"to_status"`
	ActorID    string              `json:"actor_id"`
	ActorRole  domain.ActorRole    `json:"actor_role"`
	Notes      string              `json:"notes,omitempty"`
	Latitude   *float64            `json:"latitude,omitempty"`
	Longitude  *float64            `json:"longitude,omitempty"`
	Override   bool                `json:"override,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// TransitionResponse pairs the updated snapshot with its history entry.
type TransitionResponse struct {
	Ticket  TicketResponse       `json:"ticket"`
	History HistoryEntryResponse `json:"history"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string                `json:"id"`
	Kind       domain.AttachmentKind `json:"kind"`
	StorageKey string                `json:"storage_key"`
	UploadedAt time.Time             `json:"uploaded_at"`
}

// OTPIssuedResponse returns only the expiry; the code travels by SMS.
type OTPIssuedResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}
