package services

import (
	"fmt"
	"time"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/repositories"
	"eventfest-backend/internal/utils"

	"github.com/google/uuid"
)

const ticketIDMaxAttempts = 5

// TicketService issues tickets for confirmed registrations and validates
// them at the gate. Ticket expiry is evaluated lazily on scan; there is no
// background sweeper.
type TicketService struct {
	tickets repositories.TicketRepository
	regs    repositories.RegistrationRepository
	events  repositories.EventRepository
}

func NewTicketService(
	tickets repositories.TicketRepository,
	regs repositories.RegistrationRepository,
	events repositories.EventRepository,
) *TicketService {
	return &TicketService{tickets: tickets, regs: regs, events: events}
}

// Issue creates the ticket for a confirmed registration. Idempotent: a
// registration that already has a ticket gets the existing one back.
func (s *TicketService) Issue(reg *models.Registration, event *models.Event) (*models.Ticket, error) {
	if reg.Status != models.RegistrationConfirmed {
		return nil, apperrors.InvalidTransition("tickets are issued only for confirmed registrations")
	}

	if existing, err := s.tickets.GetByRegistrationID(reg.ID.String()); err == nil {
		return existing, nil
	} else if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	ticketID, err := s.uniqueTicketID(now)
	if err != nil {
		return nil, err
	}

	payload, err := utils.EncodeTicketPayload(utils.TicketPayload{
		TicketID:       ticketID,
		RegistrationID: reg.ID.String(),
		EventID:        reg.EventID.String(),
		ParticipantID:  reg.ParticipantID.String(),
		IssuedAt:       now,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to encode ticket payload", err)
	}

	ticket := &models.Ticket{
		ID:             uuid.New(),
		TicketID:       ticketID,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		ParticipantID:  reg.ParticipantID,
		Status:         models.TicketValid,
		QRPayload:      payload,
		IssuedAt:       now,
		ExpiresAt:      event.EndDate.Add(24 * time.Hour),
	}

	if err := s.tickets.Create(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) uniqueTicketID(now time.Time) (string, error) {
	for attempt := 0; attempt < ticketIDMaxAttempts; attempt++ {
		id, err := utils.GenerateTicketID(now)
		if err != nil {
			return "", apperrors.Internal("failed to generate ticket ID", err)
		}
		exists, err := s.tickets.TicketIDExists(id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", apperrors.Internal("could not generate a unique ticket ID", nil)
}

type ScanResult struct {
	Ticket       *models.Ticket       `json:"ticket"`
	Registration *models.Registration `json:"registration"`
	ScannedAt    time.Time            `json:"scanned_at"`
}

// Scan validates a ticket at the entry gate and records attendance. The
// valid→used transition, the attendance marking and the counter increment
// commit together or not at all.
func (s *TicketService) Scan(actor *models.User, ticketID, eventID string) (*ScanResult, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByTicketID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.EventID.String() != eventID {
		return nil, apperrors.WrongEvent("ticket belongs to a different event")
	}

	switch ticket.Status {
	case models.TicketUsed:
		msg := "ticket has already been used"
		if ticket.ScannedAt != nil {
			msg = fmt.Sprintf("ticket was already scanned at %s", ticket.ScannedAt.Format(time.RFC3339))
		}
		return nil, apperrors.AlreadyUsed(msg)
	case models.TicketCancelled:
		return nil, apperrors.TicketCancelled("ticket has been cancelled")
	case models.TicketExpired:
		return nil, apperrors.Expired("ticket has expired")
	}

	if time.Now().After(ticket.ExpiresAt) {
		if err := s.tickets.MarkExpired(ticket.TicketID); err != nil {
			return nil, err
		}
		return nil, apperrors.Expired("ticket has expired")
	}

	if err := s.tickets.CompleteScan(ticket.TicketID, actor.ID.String(), ""); err != nil {
		return nil, err
	}

	scanned, err := s.tickets.GetByTicketID(ticket.TicketID)
	if err != nil {
		return nil, err
	}
	reg, err := s.regs.GetByID(scanned.RegistrationID.String())
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Ticket: scanned, Registration: reg}
	if scanned.ScannedAt != nil {
		result.ScannedAt = *scanned.ScannedAt
	}
	return result, nil
}

// MarkAttendance is the organizer's manual override: same audit trail as a
// scan, tagged manual, with no ticket required.
func (s *TicketService) MarkAttendance(actor *models.User, regID, note string) (*models.Registration, error) {
	reg, err := s.regs.GetByID(regID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(reg.EventID.String())
	if err != nil {
		return nil, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, err
	}

	return s.regs.MarkManualAttendance(regID, actor.ID.String(), note)
}

func (s *TicketService) ListMine(actor *models.User) ([]models.Ticket, error) {
	return s.tickets.ListByParticipant(actor.ID.String())
}

func (s *TicketService) Get(actor *models.User, ticketID string) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByTicketID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.ParticipantID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("not your ticket")
	}
	return ticket, nil
}
