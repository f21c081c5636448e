package handlers

import (
	"eventfest-backend/internal/middleware"
	"eventfest-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ScanTicketRequest struct {
	TicketID  string `json:"ticket_id"`
	QRPayload string `json:"qr_payload"`
}

type MarkAttendanceRequest struct {
	Note string `json:"note"`
}

func (h *Handler) ListMyTickets(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.ticketSvc.ListMine(actor)
	if err != nil {
		return err
	}
	return utils.Success(c, tickets, "Tickets retrieved successfully")
}

func (h *Handler) GetTicket(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.ticketSvc.Get(actor, c.Params("ticket_id"))
	if err != nil {
		return err
	}
	return utils.Success(c, ticket, "Ticket retrieved successfully")
}

// ScanTicket accepts either a raw ticket ID or the QR payload the gate
// scanner reads, which decodes back to one.
func (h *Handler) ScanTicket(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	eventID := c.Params("id")
	if _, err := uuid.Parse(eventID); err != nil {
		return utils.Error(c, "Invalid event ID", fiber.StatusBadRequest)
	}

	var req ScanTicketRequest
	if err := middleware.ParseAndValidate(c, &req); err != nil {
		return err
	}

	ticketID := req.TicketID
	if ticketID == "" && req.QRPayload != "" {
		payload, err := utils.DecodeTicketPayload(req.QRPayload)
		if err != nil {
			return utils.Error(c, "Invalid QR payload", fiber.StatusBadRequest)
		}
		ticketID = payload.TicketID
	}
	if ticketID == "" {
		return utils.Error(c, "ticket_id or qr_payload is required", fiber.StatusBadRequest)
	}

	result, err := h.ticketSvc.Scan(actor, ticketID, eventID)
	if err != nil {
		return err
	}
	return utils.Success(c, result, "Ticket scanned successfully")
}

func (h *Handler) MarkAttendance(c *fiber.Ctx) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	regID := c.Params("id")
	if _, err := uuid.Parse(regID); err != nil {
		return utils.Error(c, "Invalid registration ID", fiber.StatusBadRequest)
	}

	var req MarkAttendanceRequest
	if err := middleware.ParseAndValidate(c, &req); err != nil {
		return err
	}

	reg, err := h.ticketSvc.MarkAttendance(actor, regID, req.Note)
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Attendance marked successfully")
}
