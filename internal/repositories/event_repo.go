package repositories

import (
	"errors"
	"fmt"
	"time"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"

	"gorm.io/gorm"
)

type EventFilters struct {
	Status      *models.EventStatus
	EventType   *models.EventType
	StartsAfter *time.Time
	EndsBefore  *time.Time
	Search      string
	// IncludeDrafts widens the listing beyond published+ events; only the
	// service layer sets it, for owners and admins.
	IncludeDrafts bool
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(event *models.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if err := r.db.Create(event).Error; err != nil {
		return apperrors.Internal("failed to create event", err)
	}
	return nil
}

func (r *eventRepo) GetByID(id string) (*models.Event, error) {
	if id == "" {
		return nil, apperrors.ValidationFailed("event ID cannot be empty")
	}

	var event models.Event
	if err := r.db.Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("event not found with ID: %s", id))
		}
		return nil, apperrors.Internal("failed to get event", err)
	}

	return &event, nil
}

func (r *eventRepo) List(offset, limit int, filters *EventFilters) ([]models.Event, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var events []models.Event
	var total int64

	query := r.db.Model(&models.Event{})

	if filters != nil {
		if !filters.IncludeDrafts {
			query = query.Where("status <> ?", models.EventDraft)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.EventType != nil {
			query = query.Where("event_type = ?", *filters.EventType)
		}
		if filters.StartsAfter != nil {
			query = query.Where("start_date >= ?", *filters.StartsAfter)
		}
		if filters.EndsBefore != nil {
			query = query.Where("end_date <= ?", *filters.EndsBefore)
		}
		if filters.Search != "" {
			searchTerm := "%" + filters.Search + "%"
			query = query.Where("name ILIKE ? OR description ILIKE ?", searchTerm, searchTerm)
		}
	} else {
		query = query.Where("status <> ?", models.EventDraft)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count events", err)
	}

	if err := query.
		Offset(offset).
		Limit(limit).
		Order("start_date ASC").
		Find(&events).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to list events", err)
	}

	return events, total, nil
}

func (r *eventRepo) ListByOrganizer(organizerID string) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.Where("organizer_id = ?", organizerID).
		Order("created_at DESC").
		Find(&events).Error; err != nil {
		return nil, apperrors.Internal("failed to list organizer events", err)
	}
	return events, nil
}

func (r *eventRepo) Update(event *models.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if err := r.db.Save(event).Error; err != nil {
		return apperrors.Internal("failed to update event", err)
	}
	return nil
}

func (r *eventRepo) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Event{})
	if result.Error != nil {
		return apperrors.Internal("failed to delete event", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(fmt.Sprintf("event not found with ID: %s", id))
	}
	return nil
}

// IncrementRegistrations bumps the counter only while capacity remains.
// RowsAffected == 0 means a concurrent registration took the last slot.
func (r *eventRepo) IncrementRegistrations(id string) error {
	result := r.db.Model(&models.Event{}).
		Where("id = ? AND (registration_limit IS NULL OR current_registrations < registration_limit)", id).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations + 1"))

	if result.Error != nil {
		return apperrors.Internal("failed to increment registrations", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("event registration limit reached")
	}
	return nil
}

func (r *eventRepo) DecrementRegistrations(id string, by int) error {
	if by <= 0 {
		return nil
	}
	result := r.db.Model(&models.Event{}).
		Where("id = ? AND current_registrations >= ?", id, by).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations - ?", by))

	if result.Error != nil {
		return apperrors.Internal("failed to decrement registrations", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("registration counter would go negative")
	}
	return nil
}

// DecrementStock reserves merchandise stock. The quantity guard makes the
// check-then-decrement atomic: the loser of a race over the last units gets
// OUT_OF_STOCK instead of driving the column negative.
func (r *eventRepo) DecrementStock(id string, quantity int) error {
	if quantity <= 0 {
		return apperrors.ValidationFailed("quantity must be positive")
	}
	result := r.db.Model(&models.Event{}).
		Where("id = ? AND stock_quantity >= ?", id, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))

	if result.Error != nil {
		return apperrors.Internal("failed to decrement stock", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.OutOfStock("insufficient stock remaining")
	}
	return nil
}

func (r *eventRepo) IncrementAttendance(id string) error {
	result := r.db.Model(&models.Event{}).
		Where("id = ?", id).
		UpdateColumn("attendance_count", gorm.Expr("attendance_count + 1"))
	if result.Error != nil {
		return apperrors.Internal("failed to increment attendance", result.Error)
	}
	return nil
}

func (r *eventRepo) RestoreStock(id string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	result := r.db.Model(&models.Event{}).
		Where("id = ?", id).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))

	if result.Error != nil {
		return apperrors.Internal("failed to restore stock", result.Error)
	}
	return nil
}
