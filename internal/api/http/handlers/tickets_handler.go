package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldkit/dispatch-service/internal/api/dto"
	"github.com/fieldkit/dispatch-service/internal/auth"
	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/service"
	apperrors "github.com/fieldkit/dispatch-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	transitions *service.TransitionService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, transitions *service.TransitionService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, transitions: transitions}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), *actor, service.TicketCreateInput{
		Priority:        req.Priority,
		DeviceType:      req.DeviceType,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		UnderWarranty:   req.UnderWarranty,
		WarrantyUntil:   req.WarrantyUntil,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RequestTransition POST /tickets/:id/transition.
func (h *TicketsHandler) RequestTransition(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ToStatus == "" {
		return apperrors.NewValidationError("to_status required", nil)
	}

	payload := service.TransitionPayload{
		Photos:               req.Photos,
		TechnicianID:         req.TechnicianID,
		ScheduledAt:          req.ScheduledAt,
		ScheduledSlot:        req.ScheduledSlot,
		DiagnosisNotes:       req.DiagnosisNotes,
		ConfirmationType:     service.ConfirmationType(req.ConfirmationType),
		Signature:            req.Signature,
		OTPCode:              req.OTPCode,
		Reasons:              req.Reasons,
		CustomerAcknowledged: req.CustomerAcknowledged,
		Reason:               req.Reason,
		Notes:                req.Notes,
		Override:             req.Override,
	}
	if req.Location != nil {
		payload.Location = &service.GeoPoint{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
		}
	}

	result, err := h.transitions.RequestTransition(c.UserContext(), c.Params("id"), *actor, req.ToStatus, payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{
		Ticket:  ticketResponse(result.Ticket),
		History: historyResponse(result.History),
	}})
}

// NextActions GET /tickets/:id/actions.
func (h *TicketsHandler) NextActions(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	actions, err := h.transitions.NextActions(c.UserContext(), c.Params("id"), *actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": actions})
}

// GetHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	entries, err := h.tickets.GetHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, historyResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// RegisterAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) RegisterAttachment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RegisterAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	attachment, err := h.tickets.RegisterAttachment(c.UserContext(), *actor, c.Params("id"), req.Kind, req.StorageKey)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AttachmentResponse{
		ID:         attachment.ID,
		Kind:       attachment.Kind,
		StorageKey: attachment.StorageKey,
		UploadedAt: attachment.UploadedAt,
	}})
}

// IssueOTP POST /tickets/:id/otp.
func (h *TicketsHandler) IssueOTP(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	expiresAt, err := h.tickets.IssueOTP(c.UserContext(), *actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.OTPIssuedResponse{ExpiresAt: expiresAt}})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:              ticket.ID,
		TicketNumber:    ticket.TicketNumber,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		DeviceType:      ticket.DeviceType,
		CustomerName:    ticket.CustomerName,
		CustomerPhone:   ticket.CustomerPhone,
		CustomerAddress: ticket.CustomerAddress,
		TechnicianID:    ticket.TechnicianID,
		ScheduledAt:     ticket.ScheduledAt,
		ScheduledSlot:   ticket.ScheduledSlot,
		DiagnosisNotes:  ticket.DiagnosisNotes,
		RepairNotes:     ticket.RepairNotes,
		UnderWarranty:   ticket.UnderWarranty,
		WarrantyUntil:   ticket.WarrantyUntil,
		Version:         ticket.Version,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func historyResponse(entry *domain.TicketStatusHistory) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		ID:         entry.ID,
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Notes:      entry.Notes,
		Latitude:   entry.Latitude,
		Longitude:  entry.Longitude,
		Override:   entry.Override,
		CreatedAt:  entry.CreatedAt,
	}
}
