package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
)

type ParticipantType string

const (
	ParticipantIIIT    ParticipantType = "iiit"
	ParticipantNonIIIT ParticipantType = "non-iiit"
)

// User is the shared identity record. Role-specific behaviour dispatches on
// the Role tag; ParticipantType only matters when Role is participant.
// Credential and session handling live in the external auth service.
type User struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string          `gorm:"uniqueIndex;not null" json:"email"`
	Name            string          `json:"name"`
	Role            Role            `gorm:"type:varchar(20);not null;default:'participant'" json:"role"`
	ParticipantType ParticipantType `gorm:"type:varchar(20);default:'non-iiit'" json:"participant_type"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

type EventType string

const (
	EventNormal      EventType = "normal"
	EventMerchandise EventType = "merchandise"
)

type Eligibility string

const (
	EligibilityIIIT    Eligibility = "iiit"
	EligibilityNonIIIT Eligibility = "non-iiit"
	EligibilityAll     Eligibility = "all"
)

type Event struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizerID uuid.UUID   `gorm:"type:uuid;index;not null" json:"organizer_id"`
	Name        string      `gorm:"not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Tags        StringList  `gorm:"type:jsonb" json:"tags"`
	Status      EventStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	EventType   EventType   `gorm:"type:varchar(20);not null;default:'normal'" json:"event_type"`
	Eligibility Eligibility `gorm:"type:varchar(20);not null;default:'all'" json:"eligibility"`
	Fee         float64     `gorm:"default:0" json:"fee"`

	RegistrationDeadline *time.Time `json:"registration_deadline"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`

	RegistrationLimit    *int `json:"registration_limit"` // nil = unlimited
	CurrentRegistrations int  `gorm:"not null;default:0" json:"current_registrations"`
	AttendanceCount      int  `gorm:"not null;default:0" json:"attendance_count"`

	// Merchandise-only fields.
	StockQuantity int        `gorm:"not null;default:0" json:"stock_quantity"`
	PurchaseLimit int        `gorm:"not null;default:1" json:"purchase_limit"`
	Variants      StringList `gorm:"type:jsonb" json:"variants,omitempty"`

	// Locked once the event has any registration.
	CustomFormFields FormFields `gorm:"type:jsonb" json:"custom_form_fields"`

	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsFree reports whether confirming a registration requires no payment step.
func (e *Event) IsFree() bool {
	return e.EventType == EventMerchandise || e.Fee == 0
}

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationCompleted RegistrationStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Registration struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_registrations_event_participant" json:"event_id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_registrations_event_participant" json:"participant_id"`

	Status        RegistrationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus      `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`

	Merchandise *MerchandiseSelection `gorm:"type:jsonb" json:"merchandise,omitempty"`
	FormAnswers FormAnswers           `gorm:"type:jsonb" json:"form_answers"`

	Attended      bool          `gorm:"not null;default:false" json:"attended"`
	AttendanceLog AttendanceLog `gorm:"type:jsonb" json:"attendance_log"`

	PaymentProofPath string `json:"payment_proof_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Event Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

// Active reports whether the registration counts against event capacity.
func (r *Registration) Active() bool {
	return r.Status != RegistrationCancelled
}

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketExpired   TicketStatus = "expired"
	TicketCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID       string    `gorm:"uniqueIndex;not null" json:"ticket_id"`
	RegistrationID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"registration_id"`
	EventID        uuid.UUID `gorm:"type:uuid;index;not null" json:"event_id"`
	ParticipantID  uuid.UUID `gorm:"type:uuid;index;not null" json:"participant_id"`

	Status    TicketStatus `gorm:"type:varchar(20);not null;default:'valid'" json:"status"`
	QRPayload string       `gorm:"type:text;not null" json:"qr_payload"`

	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
	ScannedBy *uuid.UUID `gorm:"type:uuid" json:"scanned_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
