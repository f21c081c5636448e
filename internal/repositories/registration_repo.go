package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type registrationRepo struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

// Create inserts the registration. The composite unique index on
// (event_id, participant_id) is the backstop against concurrent duplicate
// submissions; a violation surfaces as DUPLICATE_REGISTRATION.
func (r *registrationRepo) Create(reg *models.Registration) error {
	if reg == nil {
		return errors.New("registration cannot be nil")
	}
	if err := r.db.Create(reg).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.DuplicateRegistration("participant is already registered for this event")
		}
		return apperrors.Internal("failed to create registration", err)
	}
	return nil
}

func (r *registrationRepo) GetByID(id string) (*models.Registration, error) {
	if id == "" {
		return nil, apperrors.ValidationFailed("registration ID cannot be empty")
	}

	var reg models.Registration
	if err := r.db.Where("id = ?", id).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("registration not found with ID: %s", id))
		}
		return nil, apperrors.Internal("failed to get registration", err)
	}
	return &reg, nil
}

func (r *registrationRepo) GetByEventAndParticipant(eventID, participantID string) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.Where("event_id = ? AND participant_id = ?", eventID, participantID).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("registration not found")
		}
		return nil, apperrors.Internal("failed to get registration", err)
	}
	return &reg, nil
}

func (r *registrationRepo) ListByParticipant(participantID string, offset, limit int) ([]models.Registration, int64, error) {
	var regs []models.Registration
	var total int64

	query := r.db.Model(&models.Registration{}).Where("participant_id = ?", participantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count registrations", err)
	}

	if err := r.db.Preload("Event").
		Where("participant_id = ?", participantID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&regs).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to list registrations", err)
	}

	return regs, total, nil
}

func (r *registrationRepo) ListByEvent(eventID string, offset, limit int) ([]models.Registration, int64, error) {
	var regs []models.Registration
	var total int64

	query := r.db.Model(&models.Registration{}).Where("event_id = ?", eventID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count registrations", err)
	}

	if err := r.db.Where("event_id = ?", eventID).
		Offset(offset).Limit(limit).
		Order("created_at ASC").
		Find(&regs).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to list registrations", err)
	}

	return regs, total, nil
}

func (r *registrationRepo) ListIDsByEvent(eventID string) ([]string, error) {
	var ids []string
	if err := r.db.Model(&models.Registration{}).
		Where("event_id = ?", eventID).
		Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.Internal("failed to list registration IDs", err)
	}
	return ids, nil
}

func (r *registrationRepo) CountActiveByEvent(eventID string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Registration{}).
		Where("event_id = ? AND status <> ?", eventID, models.RegistrationCancelled).
		Count(&count).Error; err != nil {
		return 0, apperrors.Internal("failed to count active registrations", err)
	}
	return count, nil
}

func (r *registrationRepo) Update(reg *models.Registration) error {
	if reg == nil {
		return errors.New("registration cannot be nil")
	}
	if err := r.db.Save(reg).Error; err != nil {
		return apperrors.Internal("failed to update registration", err)
	}
	return nil
}

func (r *registrationRepo) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Registration{})
	if result.Error != nil {
		return apperrors.Internal("failed to delete registration", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(fmt.Sprintf("registration not found with ID: %s", id))
	}
	return nil
}

// MarkManualAttendance locks the registration row for the duration of the
// transaction, so concurrent marks serialize and only the one that flips
// attended increments the event counter.
func (r *registrationRepo) MarkManualAttendance(regID, markedBy, note string) (*models.Registration, error) {
	marker, err := uuid.Parse(markedBy)
	if err != nil {
		return nil, apperrors.ValidationFailed("invalid marker ID")
	}

	var reg models.Registration
	txErr := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", regID).First(&reg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound(fmt.Sprintf("registration not found with ID: %s", regID))
			}
			return apperrors.Internal("failed to load registration", err)
		}

		firstMark := !reg.Attended
		reg.Attended = true
		reg.AttendanceLog = append(reg.AttendanceLog, models.AttendanceEntry{
			Method:   models.AttendanceMethodManual,
			MarkedBy: marker,
			MarkedAt: time.Now().UTC(),
			Note:     note,
		})
		if err := tx.Save(&reg).Error; err != nil {
			return apperrors.Internal("failed to mark attendance", err)
		}

		if firstMark {
			if err := tx.Model(&models.Event{}).
				Where("id = ?", reg.EventID).
				UpdateColumn("attendance_count", gorm.Expr("attendance_count + 1")).Error; err != nil {
				return apperrors.Internal("failed to increment attendance counter", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &reg, nil
}

// isUniqueViolation matches Postgres error 23505 without importing the driver
// error types directly.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
