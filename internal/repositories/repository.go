package repositories

import (
	"eventfest-backend/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	DB            *gorm.DB
	Events        EventRepository
	Registrations RegistrationRepository
	Tickets       TicketRepository
	Users         UserRepository
	Cascades      CascadeRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:            db,
		Events:        NewEventRepository(db),
		Registrations: NewRegistrationRepository(db),
		Tickets:       NewTicketRepository(db),
		Users:         NewUserRepository(db),
		Cascades:      NewCascadeRepository(db),
	}
}

func AutoMigrate(db *gorm.DB) error {
	// Enable UUID extension
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Registration{},
		&models.Ticket{},
	)
}

// Interface definitions

type EventRepository interface {
	Create(event *models.Event) error
	GetByID(id string) (*models.Event, error)
	List(offset, limit int, filters *EventFilters) ([]models.Event, int64, error)
	ListByOrganizer(organizerID string) ([]models.Event, error)
	Update(event *models.Event) error
	Delete(id string) error

	// Atomic conditional counter/stock operations. These are the only code
	// paths allowed to mutate CurrentRegistrations, StockQuantity and
	// AttendanceCount; each is a single guarded UPDATE so concurrent callers
	// cannot overshoot a limit or drive stock negative.
	IncrementRegistrations(id string) error
	DecrementRegistrations(id string, by int) error
	DecrementStock(id string, quantity int) error
	RestoreStock(id string, quantity int) error
	IncrementAttendance(id string) error
}

type RegistrationRepository interface {
	Create(reg *models.Registration) error
	GetByID(id string) (*models.Registration, error)
	GetByEventAndParticipant(eventID, participantID string) (*models.Registration, error)
	ListByParticipant(participantID string, offset, limit int) ([]models.Registration, int64, error)
	ListByEvent(eventID string, offset, limit int) ([]models.Registration, int64, error)
	ListIDsByEvent(eventID string) ([]string, error)
	CountActiveByEvent(eventID string) (int64, error)
	Update(reg *models.Registration) error
	Delete(id string) error

	// MarkManualAttendance appends a manual audit entry and flips the
	// attended flag, incrementing the event counter only when the flag
	// actually flipped. Runs as one transaction so concurrent marks cannot
	// double-count.
	MarkManualAttendance(regID, markedBy, note string) (*models.Registration, error)
}

type TicketRepository interface {
	Create(ticket *models.Ticket) error
	GetByTicketID(ticketID string) (*models.Ticket, error)
	GetByRegistrationID(registrationID string) (*models.Ticket, error)
	ListByParticipant(participantID string) ([]models.Ticket, error)
	TicketIDExists(ticketID string) (bool, error)
	MarkExpired(ticketID string) error

	// CompleteScan transitions the ticket to used, marks the registration's
	// attendance with a scan audit entry and increments the event attendance
	// counter in one transaction. The valid→used transition is conditional,
	// so the loser of a concurrent double scan gets ALREADY_USED.
	CompleteScan(ticketID, scannedBy, scanNote string) error
}

type UserRepository interface {
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Create(user *models.User) error
}

// CascadeRepository executes multi-entity deletions. Every method runs as a
// single transaction: a partial cascade must never leave orphaned tickets or
// stale counters.
type CascadeRepository interface {
	// CancelRegistration persists the already-mutated registration, deletes
	// its ticket, decrements the event counter and restores merchandise
	// stock by restoreQty (0 for none).
	CancelRegistration(reg *models.Registration, restoreQty int) error

	// DeleteRegistration removes the registration row outright plus its
	// ticket, with the same counter/stock bookkeeping for active rows.
	DeleteRegistration(reg *models.Registration, restoreQty int) error

	// DeleteRegistrationsBulk batch-deletes the given registrations and
	// their tickets, computing per-event counter decrements up front.
	DeleteRegistrationsBulk(regIDs []string) error

	// DeleteEvent removes the event and everything under it.
	DeleteEvent(eventID string) error

	// DeleteOrganizer removes every event the organizer owns, transitively.
	// This is the administrative override: the per-event delete guard does
	// not apply.
	DeleteOrganizer(organizerID string) error

	// CancelEventTickets flips all valid tickets of an event to cancelled,
	// used when the event itself is cancelled.
	CancelEventTickets(eventID string) error
}
