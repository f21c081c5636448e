package repositories

import (
	"errors"
	"fmt"
	"time"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ticketRepo struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) Create(ticket *models.Ticket) error {
	if ticket == nil {
		return errors.New("ticket cannot be nil")
	}
	if err := r.db.Create(ticket).Error; err != nil {
		return apperrors.Internal("failed to create ticket", err)
	}
	return nil
}

func (r *ticketRepo) GetByTicketID(ticketID string) (*models.Ticket, error) {
	if ticketID == "" {
		return nil, apperrors.ValidationFailed("ticket ID cannot be empty")
	}

	var ticket models.Ticket
	if err := r.db.Where("ticket_id = ?", ticketID).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("ticket not found: %s", ticketID))
		}
		return nil, apperrors.Internal("failed to get ticket", err)
	}
	return &ticket, nil
}

func (r *ticketRepo) GetByRegistrationID(registrationID string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.Where("registration_id = ?", registrationID).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no ticket for this registration")
		}
		return nil, apperrors.Internal("failed to get ticket", err)
	}
	return &ticket, nil
}

func (r *ticketRepo) ListByParticipant(participantID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := r.db.Where("participant_id = ?", participantID).
		Order("issued_at DESC").
		Find(&tickets).Error; err != nil {
		return nil, apperrors.Internal("failed to list tickets", err)
	}
	return tickets, nil
}

func (r *ticketRepo) TicketIDExists(ticketID string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Ticket{}).
		Where("ticket_id = ?", ticketID).
		Count(&count).Error; err != nil {
		return false, apperrors.Internal("failed to check ticket ID", err)
	}
	return count > 0, nil
}

// MarkExpired lazily flips a ticket past its expiry. Conditional on the
// current status so a concurrent successful scan is not clobbered.
func (r *ticketRepo) MarkExpired(ticketID string) error {
	result := r.db.Model(&models.Ticket{}).
		Where("ticket_id = ? AND status = ?", ticketID, models.TicketValid).
		Update("status", models.TicketExpired)
	if result.Error != nil {
		return apperrors.Internal("failed to expire ticket", result.Error)
	}
	return nil
}

// CompleteScan performs the three scan updates as one transaction: the
// conditional valid→used transition, the registration attendance marking and
// the event attendance counter. If any step fails, none stick.
func (r *ticketRepo) CompleteScan(ticketID, scannedBy, scanNote string) error {
	scanner, err := uuid.Parse(scannedBy)
	if err != nil {
		return apperrors.ValidationFailed("invalid scanner ID")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		result := tx.Model(&models.Ticket{}).
			Where("ticket_id = ? AND status = ?", ticketID, models.TicketValid).
			Updates(map[string]interface{}{
				"status":     models.TicketUsed,
				"scanned_at": now,
				"scanned_by": scanner,
			})
		if result.Error != nil {
			return apperrors.Internal("failed to mark ticket used", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.AlreadyUsed("ticket is no longer valid")
		}

		var ticket models.Ticket
		if err := tx.Where("ticket_id = ?", ticketID).First(&ticket).Error; err != nil {
			return apperrors.Internal("failed to reload ticket", err)
		}

		var reg models.Registration
		if err := tx.Where("id = ?", ticket.RegistrationID).First(&reg).Error; err != nil {
			return apperrors.Internal("failed to load registration for scan", err)
		}

		reg.Attended = true
		reg.AttendanceLog = append(reg.AttendanceLog, models.AttendanceEntry{
			Method:   models.AttendanceMethodScan,
			MarkedBy: scanner,
			MarkedAt: now,
			Note:     scanNote,
		})
		if err := tx.Save(&reg).Error; err != nil {
			return apperrors.Internal("failed to mark attendance", err)
		}

		if err := tx.Model(&models.Event{}).
			Where("id = ?", ticket.EventID).
			UpdateColumn("attendance_count", gorm.Expr("attendance_count + 1")).Error; err != nil {
			return apperrors.Internal("failed to increment attendance counter", err)
		}

		return nil
	})
}
