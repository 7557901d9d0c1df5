package domain

import "time"

// AttachmentKind tags the lifecycle phase a photo documents.
type AttachmentKind string

const (
	AttachmentBeforeInspection AttachmentKind = "BEFORE_INSPECTION"
	AttachmentDuringRepair     AttachmentKind = "DURING_REPAIR"
	AttachmentAfterRepair      AttachmentKind = "AFTER_REPAIR"
)

// AttachmentReference is metadata for an externally stored photo. The core
// never touches bytes; guards consume counts per kind.
type AttachmentReference struct {
	ID         string
	TicketID   string
	Kind       AttachmentKind
	StorageKey string
	UploadedAt time.Time
}
