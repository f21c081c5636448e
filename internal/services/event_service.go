package services

import (
	"fmt"
	"strings"
	"time"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/repositories"

	"github.com/google/uuid"
)

// EventService owns the event lifecycle state machine, the eligibility and
// capacity rules, and the delete guard. All counter and stock mutations go
// through the repository's conditional operations; nothing else writes them.
type EventService struct {
	events  repositories.EventRepository
	regs    repositories.RegistrationRepository
	cascade *CascadeService
}

func NewEventService(
	events repositories.EventRepository,
	regs repositories.RegistrationRepository,
	cascade *CascadeService,
) *EventService {
	return &EventService{events: events, regs: regs, cascade: cascade}
}

type CreateEventRequest struct {
	Name                 string
	Description          string
	Tags                 []string
	EventType            models.EventType
	Eligibility          models.Eligibility
	Fee                  float64
	RegistrationDeadline *time.Time
	StartDate            time.Time
	EndDate              time.Time
	RegistrationLimit    *int
	StockQuantity        int
	PurchaseLimit        int
	Variants             []string
	CustomFormFields     models.FormFields
}

// UpdateEventRequest is a sparse patch: nil fields are left untouched.
type UpdateEventRequest struct {
	Name                 *string
	Description          *string
	Tags                 *[]string
	Eligibility          *models.Eligibility
	Fee                  *float64
	RegistrationDeadline *time.Time
	StartDate            *time.Time
	EndDate              *time.Time
	RegistrationLimit    *int
	ClearLimit           bool
	StockQuantity        *int
	PurchaseLimit        *int
	Variants             *[]string
	CustomFormFields     *models.FormFields
	Status               *models.EventStatus
}

func (s *EventService) Create(actor *models.User, req CreateEventRequest) (*models.Event, error) {
	if actor.Role != models.RoleOrganizer && actor.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("only organizers can create events")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.ValidationFailed("name is required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, apperrors.ValidationFailed("end date must not be before start date")
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = models.EventNormal
	}
	eligibility := req.Eligibility
	if eligibility == "" {
		eligibility = models.EligibilityAll
	}

	purchaseLimit := req.PurchaseLimit
	if eventType == models.EventMerchandise {
		if req.StockQuantity < 0 {
			return nil, apperrors.ValidationFailed("stock quantity cannot be negative")
		}
		if purchaseLimit <= 0 {
			purchaseLimit = 1
		}
	}
	if req.RegistrationLimit != nil && *req.RegistrationLimit <= 0 {
		return nil, apperrors.ValidationFailed("registration limit must be positive")
	}

	event := &models.Event{
		ID:                   uuid.New(),
		OrganizerID:          actor.ID,
		Name:                 req.Name,
		Description:          req.Description,
		Tags:                 req.Tags,
		Status:               models.EventDraft,
		EventType:            eventType,
		Eligibility:          eligibility,
		Fee:                  req.Fee,
		RegistrationDeadline: req.RegistrationDeadline,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RegistrationLimit:    req.RegistrationLimit,
		StockQuantity:        req.StockQuantity,
		PurchaseLimit:        purchaseLimit,
		Variants:             req.Variants,
		CustomFormFields:     req.CustomFormFields,
	}

	if err := s.events.Create(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns the event; drafts are visible only to their organizer or an
// admin. actor may be nil for anonymous callers.
func (s *EventService) Get(id string, actor *models.User) (*models.Event, error) {
	event, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventDraft {
		if actor == nil || (actor.Role != models.RoleAdmin && event.OrganizerID != actor.ID) {
			return nil, apperrors.NotFound("event not found")
		}
	}
	return event, nil
}

func (s *EventService) List(page, pageSize int, filters *repositories.EventFilters) ([]models.Event, int64, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	events, total, err := s.events.List(offset, pageSize, filters)
	if err != nil {
		return nil, 0, 0, err
	}

	totalPages := (int(total) + pageSize - 1) / pageSize
	return events, total, totalPages, nil
}

func (s *EventService) ListMine(actor *models.User) ([]models.Event, error) {
	return s.events.ListByOrganizer(actor.ID.String())
}

// Publish moves a draft to published after checking the fields a public
// listing needs. Missing fields are reported together.
func (s *EventService) Publish(id string, actor *models.User) (*models.Event, error) {
	event, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, err
	}
	if event.Status != models.EventDraft {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot publish event in status %q", event.Status))
	}

	var missing []string
	if strings.TrimSpace(event.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(event.Description) == "" {
		missing = append(missing, "description")
	}
	if event.RegistrationDeadline == nil {
		missing = append(missing, "registration_deadline")
	}
	if event.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if event.EndDate.IsZero() {
		missing = append(missing, "end_date")
	}
	if len(missing) > 0 {
		return nil, apperrors.ValidationFailed(
			"cannot publish, missing fields: " + strings.Join(missing, ", "))
	}

	now := time.Now().UTC()
	event.Status = models.EventPublished
	event.PublishedAt = &now
	if err := s.events.Update(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Update applies a patch under the per-status edit policy.
func (s *EventService) Update(id string, patch UpdateEventRequest, actor *models.User) (*models.Event, error) {
	event, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, err
	}

	switch event.Status {
	case models.EventDraft:
		if err := s.applyDraftPatch(event, patch); err != nil {
			return nil, err
		}
	case models.EventPublished:
		if err := s.applyPublishedPatch(event, patch); err != nil {
			return nil, err
		}
	case models.EventOngoing, models.EventCompleted, models.EventCancelled:
		if patchTouchesNonStatus(patch) {
			return nil, apperrors.Immutable(
				fmt.Sprintf("event in status %q accepts only status changes", event.Status))
		}
	}

	if patch.Status != nil && *patch.Status != event.Status {
		if err := s.transitionStatus(event, *patch.Status); err != nil {
			return nil, err
		}
	}

	if err := s.events.Update(event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) applyDraftPatch(event *models.Event, patch UpdateEventRequest) error {
	if patch.CustomFormFields != nil {
		_, total, err := s.regs.ListByEvent(event.ID.String(), 0, 1)
		if err != nil {
			return err
		}
		if total > 0 {
			return apperrors.PolicyViolation("custom form fields are locked once registrations exist")
		}
		event.CustomFormFields = *patch.CustomFormFields
	}
	if patch.Name != nil {
		event.Name = *patch.Name
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Tags != nil {
		event.Tags = *patch.Tags
	}
	if patch.Eligibility != nil {
		event.Eligibility = *patch.Eligibility
	}
	if patch.Fee != nil {
		event.Fee = *patch.Fee
	}
	if patch.RegistrationDeadline != nil {
		event.RegistrationDeadline = patch.RegistrationDeadline
	}
	if patch.StartDate != nil {
		event.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		event.EndDate = *patch.EndDate
	}
	if event.EndDate.Before(event.StartDate) {
		return apperrors.ValidationFailed("end date must not be before start date")
	}
	if patch.ClearLimit {
		event.RegistrationLimit = nil
	} else if patch.RegistrationLimit != nil {
		event.RegistrationLimit = patch.RegistrationLimit
	}
	if patch.StockQuantity != nil {
		if *patch.StockQuantity < 0 {
			return apperrors.ValidationFailed("stock quantity cannot be negative")
		}
		event.StockQuantity = *patch.StockQuantity
	}
	if patch.PurchaseLimit != nil {
		event.PurchaseLimit = *patch.PurchaseLimit
	}
	if patch.Variants != nil {
		event.Variants = *patch.Variants
	}
	return nil
}

// applyPublishedPatch allows only description, deadline (extension only),
// registration limit and tags once an event is live.
func (s *EventService) applyPublishedPatch(event *models.Event, patch UpdateEventRequest) error {
	if patch.Name != nil || patch.Eligibility != nil || patch.Fee != nil ||
		patch.StartDate != nil || patch.EndDate != nil ||
		patch.StockQuantity != nil || patch.PurchaseLimit != nil ||
		patch.Variants != nil || patch.CustomFormFields != nil {
		return apperrors.Immutable("published events accept only description, deadline, registration limit and tags")
	}

	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Tags != nil {
		event.Tags = *patch.Tags
	}
	if patch.RegistrationDeadline != nil {
		if event.RegistrationDeadline != nil && patch.RegistrationDeadline.Before(*event.RegistrationDeadline) {
			return apperrors.PolicyViolation("registration deadline may only be extended")
		}
		event.RegistrationDeadline = patch.RegistrationDeadline
	}
	if patch.ClearLimit {
		event.RegistrationLimit = nil
	} else if patch.RegistrationLimit != nil {
		if *patch.RegistrationLimit < event.CurrentRegistrations {
			return apperrors.PolicyViolation("registration limit cannot drop below current registrations")
		}
		event.RegistrationLimit = patch.RegistrationLimit
	}
	return nil
}

var eventTransitions = map[models.EventStatus][]models.EventStatus{
	models.EventDraft:     {},
	models.EventPublished: {models.EventOngoing, models.EventCancelled, models.EventCompleted},
	models.EventOngoing:   {models.EventCompleted},
}

func (s *EventService) transitionStatus(event *models.Event, to models.EventStatus) error {
	if to == models.EventPublished {
		return apperrors.InvalidTransition("use publish to open a draft event")
	}

	allowed := false
	for _, next := range eventTransitions[event.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperrors.InvalidTransition(
			fmt.Sprintf("cannot transition event from %q to %q", event.Status, to))
	}

	event.Status = to
	if to == models.EventCancelled {
		// Outstanding tickets lose their validity with the event.
		if err := s.cascade.CancelEventTickets(event.ID.String()); err != nil {
			return err
		}
	}
	return nil
}

func patchTouchesNonStatus(patch UpdateEventRequest) bool {
	return patch.Name != nil || patch.Description != nil || patch.Tags != nil ||
		patch.Eligibility != nil || patch.Fee != nil ||
		patch.RegistrationDeadline != nil || patch.StartDate != nil ||
		patch.EndDate != nil || patch.RegistrationLimit != nil || patch.ClearLimit ||
		patch.StockQuantity != nil || patch.PurchaseLimit != nil ||
		patch.Variants != nil || patch.CustomFormFields != nil
}

// CanRegister evaluates the gate checks in a fixed order so the caller always
// sees a deterministic reason: status, deadline, capacity, eligibility,
// stock. Returns nil when registration is allowed.
func (s *EventService) CanRegister(event *models.Event, participant *models.User) error {
	if event.Status != models.EventPublished {
		return apperrors.PolicyViolation("event is not open for registration")
	}
	if event.RegistrationDeadline != nil && time.Now().After(*event.RegistrationDeadline) {
		return apperrors.PolicyViolation("registration deadline has passed")
	}
	if event.RegistrationLimit != nil && event.CurrentRegistrations >= *event.RegistrationLimit {
		return apperrors.Conflict("event has reached its registration limit")
	}
	switch event.Eligibility {
	case models.EligibilityIIIT:
		if participant.ParticipantType != models.ParticipantIIIT {
			return apperrors.PolicyViolation("event is restricted to IIIT participants")
		}
	case models.EligibilityNonIIIT:
		if participant.ParticipantType != models.ParticipantNonIIIT {
			return apperrors.PolicyViolation("event is restricted to non-IIIT participants")
		}
	}
	if event.EventType == models.EventMerchandise && event.StockQuantity <= 0 {
		return apperrors.OutOfStock("merchandise is out of stock")
	}
	return nil
}

// Delete enforces the guard and hands the blast radius to the cascade:
// only drafts or events with no active registrations can be removed.
func (s *EventService) Delete(id string, actor *models.User) error {
	event, err := s.events.GetByID(id)
	if err != nil {
		return err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return err
	}
	if event.Status != models.EventDraft && event.CurrentRegistrations > 0 {
		return apperrors.Conflict("event has active registrations and cannot be deleted")
	}
	return s.cascade.DeleteEvent(event.ID.String())
}

// requireEventOwner is the shared ownership check: admins pass, organizers
// only for their own events.
func requireEventOwner(event *models.Event, actor *models.User) error {
	if actor == nil {
		return apperrors.Forbidden("authentication required")
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleOrganizer && event.OrganizerID == actor.ID {
		return nil
	}
	return apperrors.Forbidden("not authorized for this event")
}
