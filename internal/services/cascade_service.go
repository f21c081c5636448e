package services

import (
	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/repositories"

	"github.com/sirupsen/logrus"
)

// CascadeService is the single entry point for multi-entity deletions. Every
// path that removes an event, registration or organizer goes through here so
// the blast radius is explicit and testable; the repository executes each
// cascade as one transaction.
type CascadeService struct {
	cascades repositories.CascadeRepository
	events   repositories.EventRepository
	regs     repositories.RegistrationRepository
}

func NewCascadeService(
	cascades repositories.CascadeRepository,
	events repositories.EventRepository,
	regs repositories.RegistrationRepository,
) *CascadeService {
	return &CascadeService{cascades: cascades, events: events, regs: regs}
}

// CancelRegistration persists a cancellation together with its side effects:
// ticket removal, counter decrement and stock restore.
func (s *CascadeService) CancelRegistration(reg *models.Registration, restoreQty int) error {
	return s.cascades.CancelRegistration(reg, restoreQty)
}

// DeleteRegistration removes a registration outright. Organizer of the event
// or admin only.
func (s *CascadeService) DeleteRegistration(actor *models.User, regID string) error {
	reg, err := s.regs.GetByID(regID)
	if err != nil {
		return err
	}
	event, err := s.events.GetByID(reg.EventID.String())
	if err != nil {
		return err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return err
	}

	restoreQty := 0
	if event.EventType == models.EventMerchandise &&
		reg.Status == models.RegistrationConfirmed && reg.Merchandise != nil {
		restoreQty = reg.Merchandise.Quantity
	}
	return s.cascades.DeleteRegistration(reg, restoreQty)
}

// DeleteRegistrationsByEvent batch-deletes every registration of an event,
// computing counter totals once instead of one transaction per row.
func (s *CascadeService) DeleteRegistrationsByEvent(actor *models.User, eventID string) error {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return err
	}

	ids, err := s.regs.ListIDsByEvent(eventID)
	if err != nil {
		return err
	}
	return s.cascades.DeleteRegistrationsBulk(ids)
}

// DeleteEvent removes the event tree. The delete guard lives in
// EventService.Delete; this only executes.
func (s *CascadeService) DeleteEvent(eventID string) error {
	if err := s.cascades.DeleteEvent(eventID); err != nil {
		return err
	}
	logrus.WithField("event_id", eventID).Info("event cascade completed")
	return nil
}

// DeleteOrganizer purges every event the organizer owns, transitively
// removing registrations and tickets. Admin-only: this overrides the normal
// single-event delete guard.
func (s *CascadeService) DeleteOrganizer(actor *models.User, organizerID string) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return apperrors.Forbidden("organizer removal is admin-only")
	}
	if err := s.cascades.DeleteOrganizer(organizerID); err != nil {
		return err
	}
	logrus.WithField("organizer_id", organizerID).Info("organizer cascade completed")
	return nil
}

// CancelEventTickets invalidates outstanding tickets when an event is
// cancelled.
func (s *CascadeService) CancelEventTickets(eventID string) error {
	return s.cascades.CancelEventTickets(eventID)
}
