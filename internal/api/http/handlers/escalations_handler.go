package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldkit/dispatch-service/internal/api/dto"
	"github.com/fieldkit/dispatch-service/internal/domain"
	"github.com/fieldkit/dispatch-service/internal/repository"
	"github.com/fieldkit/dispatch-service/internal/service"
)

// EscalationsHandler exposes monitor findings.
type EscalationsHandler struct {
	escalations *service.EscalationService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(escalations *service.EscalationService) *EscalationsHandler {
	return &EscalationsHandler{escalations: escalations}
}

// List GET /escalations.
func (h *EscalationsHandler) List(c *fiber.Ctx) error {
	filter := repository.EscalationFilter{}

	if ticketID := c.Query("ticket_id"); ticketID != "" {
		filter.TicketID = &ticketID
	}
	if typeStr := c.Query("type"); typeStr != "" {
		escalationType := domain.EscalationType(strings.ToLower(typeStr))
		filter.Type = &escalationType
	}
	if levelStr := c.Query("level"); levelStr != "" {
		level := domain.EscalationLevel(strings.ToUpper(levelStr))
		filter.Level = &level
	}
	if resolvedStr := c.Query("resolved"); resolvedStr != "" {
		resolved, err := strconv.ParseBool(resolvedStr)
		if err == nil {
			filter.Resolved = &resolved
		}
	} else {
		// default to open findings
		resolved := false
		filter.Resolved = &resolved
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	escalations, err := h.escalations.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(escalations))
	for _, escalation := range escalations {
		items = append(items, dto.EscalationResponse{
			ID:         escalation.ID,
			TicketID:   escalation.TicketID,
			Level:      escalation.Level,
			Type:       escalation.Type,
			Reason:     escalation.Reason,
			Resolved:   escalation.Resolved,
			ResolvedAt: escalation.ResolvedAt,
			CreatedAt:  escalation.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
