package services

import (
	"fmt"
	"strings"
	"time"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RegistrationService drives the registration and payment state machines.
// Capacity and stock are reserved through the event repository's conditional
// updates; any later step that fails compensates the reservation so the
// counters stay truthful.
type RegistrationService struct {
	events   repositories.EventRepository
	regs     repositories.RegistrationRepository
	users    repositories.UserRepository
	eventSvc *EventService
	tickets  *TicketService
	cascade  *CascadeService
	notifier Notifier
}

func NewRegistrationService(
	events repositories.EventRepository,
	regs repositories.RegistrationRepository,
	users repositories.UserRepository,
	eventSvc *EventService,
	tickets *TicketService,
	cascade *CascadeService,
	notifier Notifier,
) *RegistrationService {
	return &RegistrationService{
		events:   events,
		regs:     regs,
		users:    users,
		eventSvc: eventSvc,
		tickets:  tickets,
		cascade:  cascade,
		notifier: notifier,
	}
}

type RegisterRequest struct {
	FormAnswers models.FormAnswers
	Merchandise *models.MerchandiseSelection
}

type RegisterResult struct {
	Registration *models.Registration `json:"registration"`
	Ticket       *models.Ticket       `json:"ticket,omitempty"`
}

func (s *RegistrationService) Register(actor *models.User, eventID string, req RegisterRequest) (*RegisterResult, error) {
	if actor.Role != models.RoleParticipant {
		return nil, apperrors.Forbidden("only participants can register")
	}

	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	if err := s.eventSvc.CanRegister(event, actor); err != nil {
		return nil, err
	}

	// Fast duplicate check; the unique index on (event, participant) is the
	// backstop for submissions racing each other past this point.
	if existing, err := s.regs.GetByEventAndParticipant(eventID, actor.ID.String()); err == nil && existing != nil {
		return nil, apperrors.DuplicateRegistration("participant is already registered for this event")
	} else if err != nil && !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	if err := validateFormAnswers(event.CustomFormFields, req.FormAnswers); err != nil {
		return nil, err
	}

	if event.EventType == models.EventMerchandise {
		if err := validateMerchandise(event, req.Merchandise); err != nil {
			return nil, err
		}
	}

	// Reserve a capacity slot first. Losing the race over the last slot is a
	// CONFLICT before anything was written.
	if err := s.events.IncrementRegistrations(eventID); err != nil {
		return nil, err
	}

	reg := &models.Registration{
		ID:            uuid.New(),
		EventID:       event.ID,
		ParticipantID: actor.ID,
		Status:        models.RegistrationPending,
		PaymentStatus: models.PaymentPending,
		FormAnswers:   req.FormAnswers,
	}
	if event.EventType == models.EventMerchandise {
		reg.Merchandise = req.Merchandise
	}

	if err := s.regs.Create(reg); err != nil {
		s.compensateSlot(eventID)
		return nil, err
	}

	if !event.IsFree() {
		// Paid normal event: stays pending until the organizer verifies the
		// payment manually.
		s.notifyBestEffort(func() error {
			return s.notifier.SendPaymentPending(actor, event, event.Fee)
		})
		return &RegisterResult{Registration: reg}, nil
	}

	if event.EventType == models.EventMerchandise {
		if err := s.events.DecrementStock(eventID, req.Merchandise.Quantity); err != nil {
			// Stock ran out under us; undo the registration entirely.
			if delErr := s.regs.Delete(reg.ID.String()); delErr != nil {
				logrus.WithError(delErr).Error("failed to roll back registration after stock race")
			}
			s.compensateSlot(eventID)
			return nil, err
		}
	}

	reg.Status = models.RegistrationConfirmed
	reg.PaymentStatus = models.PaymentPaid
	if err := s.regs.Update(reg); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.Issue(reg, event)
	if err != nil {
		return nil, err
	}

	s.notifyBestEffort(func() error {
		return s.notifier.SendTicket(actor, event, ticket)
	})

	return &RegisterResult{Registration: reg, Ticket: ticket}, nil
}

// VerifyPayment resolves a manually reviewed payment. Approval confirms the
// registration and issues the ticket; rejection only fails the payment so
// the participant can resubmit proof.
func (s *RegistrationService) VerifyPayment(actor *models.User, regID string, approved bool) (*RegisterResult, error) {
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
	if reg.PaymentStatus != models.PaymentPending {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("payment is already %q", reg.PaymentStatus))
	}
	if reg.Status != models.RegistrationPending {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("registration is already %q", reg.Status))
	}

	if !approved {
		reg.PaymentStatus = models.PaymentFailed
		if err := s.regs.Update(reg); err != nil {
			return nil, err
		}
		return &RegisterResult{Registration: reg}, nil
	}

	reg.PaymentStatus = models.PaymentPaid
	reg.Status = models.RegistrationConfirmed
	if err := s.regs.Update(reg); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.Issue(reg, event)
	if err != nil {
		return nil, err
	}

	if participant, err := s.users.GetByID(reg.ParticipantID.String()); err == nil {
		s.notifyBestEffort(func() error {
			return s.notifier.SendTicket(participant, event, ticket)
		})
	}

	return &RegisterResult{Registration: reg, Ticket: ticket}, nil
}

// EnsureTicket repairs a confirmed registration whose ticket issuance failed
// mid-flight. Issue is idempotent, so when the ticket already exists it is
// simply returned. Callable by the participant who owns the registration or
// by the event's organizer.
func (s *RegistrationService) EnsureTicket(actor *models.User, regID string) (*models.Ticket, error) {
	reg, err := s.regs.GetByID(regID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(reg.EventID.String())
	if err != nil {
		return nil, err
	}
	if reg.ParticipantID != actor.ID {
		if err := requireEventOwner(event, actor); err != nil {
			return nil, apperrors.Forbidden("not your registration")
		}
	}
	return s.tickets.Issue(reg, event)
}

// ResubmitPayment lets a participant retry after a rejected verification.
func (s *RegistrationService) ResubmitPayment(actor *models.User, regID string) (*models.Registration, error) {
	reg, err := s.regs.GetByID(regID)
	if err != nil {
		return nil, err
	}
	if reg.ParticipantID != actor.ID {
		return nil, apperrors.Forbidden("not your registration")
	}
	if reg.PaymentStatus != models.PaymentFailed {
		return nil, apperrors.InvalidTransition("payment is not in a failed state")
	}
	reg.PaymentStatus = models.PaymentPending
	if err := s.regs.Update(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// UploadPaymentProof attaches the stored proof reference to a pending
// payment.
func (s *RegistrationService) UploadPaymentProof(actor *models.User, regID, proofPath string) (*models.Registration, error) {
	reg, err := s.regs.GetByID(regID)
	if err != nil {
		return nil, err
	}
	if reg.ParticipantID != actor.ID {
		return nil, apperrors.Forbidden("not your registration")
	}
	if reg.PaymentStatus != models.PaymentPending {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot attach proof while payment is %q", reg.PaymentStatus))
	}
	reg.PaymentProofPath = proofPath
	if err := s.regs.Update(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Cancel releases the participant's slot before the event starts. Confirmed
// merchandise purchases restore their stock: cancellation reverses both
// capacity and stock, uniformly with the delete path.
func (s *RegistrationService) Cancel(actor *models.User, regID string) (*models.Registration, error) {
	reg, err := s.regs.GetByID(regID)
	if err != nil {
		return nil, err
	}
	if reg.ParticipantID != actor.ID {
		return nil, apperrors.Forbidden("not your registration")
	}
	if reg.Status == models.RegistrationCancelled {
		return nil, apperrors.InvalidTransition("registration is already cancelled")
	}

	event, err := s.events.GetByID(reg.EventID.String())
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(event.StartDate) {
		return nil, apperrors.PolicyViolation("registrations cannot be cancelled after the event has started")
	}

	restoreQty := 0
	if event.EventType == models.EventMerchandise &&
		reg.Status == models.RegistrationConfirmed && reg.Merchandise != nil {
		restoreQty = reg.Merchandise.Quantity
	}

	reg.Status = models.RegistrationCancelled
	if reg.PaymentStatus == models.PaymentPaid {
		reg.PaymentStatus = models.PaymentRefunded
	}

	if err := s.cascade.CancelRegistration(reg, restoreQty); err != nil {
		return nil, err
	}
	return reg, nil
}

// Complete marks a confirmed registration completed. This is the post-event
// admin/batch transition; nothing triggers it automatically.
func (s *RegistrationService) Complete(actor *models.User, regID string) (*models.Registration, error) {
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
	if reg.Status != models.RegistrationConfirmed {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("only confirmed registrations can complete, got %q", reg.Status))
	}
	reg.Status = models.RegistrationCompleted
	if err := s.regs.Update(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *RegistrationService) ListMine(actor *models.User, page, pageSize int) ([]models.Registration, int64, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	regs, total, err := s.regs.ListByParticipant(actor.ID.String(), offset, pageSize)
	if err != nil {
		return nil, 0, 0, err
	}
	totalPages := (int(total) + pageSize - 1) / pageSize
	return regs, total, totalPages, nil
}

// ListByEvent is the organizer's roster view.
func (s *RegistrationService) ListByEvent(actor *models.User, eventID string, page, pageSize int) ([]models.Registration, int64, int, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, 0, 0, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, 0, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	regs, total, err := s.regs.ListByEvent(eventID, offset, pageSize)
	if err != nil {
		return nil, 0, 0, err
	}
	totalPages := (int(total) + pageSize - 1) / pageSize
	return regs, total, totalPages, nil
}

func (s *RegistrationService) Get(actor *models.User, regID string) (*models.Registration, error) {
	reg, err := s.regs.GetByID(regID)
	if err != nil {
		return nil, err
	}
	if reg.ParticipantID == actor.ID || actor.Role == models.RoleAdmin {
		return reg, nil
	}
	event, err := s.events.GetByID(reg.EventID.String())
	if err != nil {
		return nil, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, apperrors.Forbidden("not your registration")
	}
	return reg, nil
}

func (s *RegistrationService) compensateSlot(eventID string) {
	if err := s.events.DecrementRegistrations(eventID, 1); err != nil {
		logrus.WithError(err).WithField("event_id", eventID).
			Error("failed to release registration slot")
	}
}

// notifyBestEffort logs and swallows delivery failures; the confirming
// transaction has already committed.
func (s *RegistrationService) notifyBestEffort(send func() error) {
	if err := send(); err != nil {
		logrus.WithError(err).Warn("notification dispatch failed")
	}
}

// validateFormAnswers checks required fields in the order the organizer
// defined them, naming the first one missing.
func validateFormAnswers(fields models.FormFields, answers models.FormAnswers) error {
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if strings.TrimSpace(answers[f.Name]) == "" {
			return apperrors.ValidationFailed(
				fmt.Sprintf("required field missing: %s", f.Name))
		}
	}
	return nil
}

func validateMerchandise(event *models.Event, sel *models.MerchandiseSelection) error {
	if sel == nil {
		return apperrors.ValidationFailed("merchandise selection is required")
	}
	if sel.Quantity < 1 {
		return apperrors.ValidationFailed("quantity must be at least 1")
	}
	if sel.Quantity > event.PurchaseLimit {
		return apperrors.ValidationFailed(
			fmt.Sprintf("quantity exceeds purchase limit of %d", event.PurchaseLimit))
	}
	if sel.Quantity > event.StockQuantity {
		return apperrors.OutOfStock("requested quantity exceeds available stock")
	}
	return nil
}
