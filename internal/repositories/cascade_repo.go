package repositories

import (
	"fmt"

	"eventfest-backend/internal/apperrors"
	"eventfest-backend/internal/models"

	"gorm.io/gorm"
)

type cascadeRepo struct {
	db *gorm.DB
}

func NewCascadeRepository(db *gorm.DB) CascadeRepository {
	return &cascadeRepo{db: db}
}

func (r *cascadeRepo) CancelRegistration(reg *models.Registration, restoreQty int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(reg).Error; err != nil {
			return apperrors.Internal("cancel cascade: persist registration", err)
		}
		// The registration was active until this call, so its slot is
		// always released.
		return r.removeArtifacts(tx, reg, restoreQty, true)
	})
}

func (r *cascadeRepo) DeleteRegistration(reg *models.Registration, restoreQty int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.removeArtifacts(tx, reg, restoreQty, reg.Status != models.RegistrationCancelled); err != nil {
			return err
		}
		if err := tx.Where("id = ?", reg.ID).Delete(&models.Registration{}).Error; err != nil {
			return apperrors.Internal("delete cascade: registration row", err)
		}
		return nil
	})
}

// removeArtifacts deletes the dependent ticket and reverses the counter and
// stock effects of one registration. Already-cancelled registrations released
// their slot when they were cancelled, so those skip the decrement.
func (r *cascadeRepo) removeArtifacts(tx *gorm.DB, reg *models.Registration, restoreQty int, decrement bool) error {
	if err := tx.Where("registration_id = ?", reg.ID).Delete(&models.Ticket{}).Error; err != nil {
		return apperrors.Internal("cascade: delete ticket", err)
	}

	if decrement {
		result := tx.Model(&models.Event{}).
			Where("id = ? AND current_registrations > 0", reg.EventID).
			UpdateColumn("current_registrations", gorm.Expr("current_registrations - 1"))
		if result.Error != nil {
			return apperrors.Internal("cascade: decrement counter", result.Error)
		}
	}

	if restoreQty > 0 {
		if err := tx.Model(&models.Event{}).
			Where("id = ?", reg.EventID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", restoreQty)).Error; err != nil {
			return apperrors.Internal("cascade: restore stock", err)
		}
	}

	return nil
}

// DeleteRegistrationsBulk removes many registrations in one transaction.
// Per-event decrement totals are computed first, then applied as one UPDATE
// per event rather than one per registration.
func (r *cascadeRepo) DeleteRegistrationsBulk(regIDs []string) error {
	if len(regIDs) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		type eventTotal struct {
			EventID string
			Total   int
		}
		var totals []eventTotal
		if err := tx.Model(&models.Registration{}).
			Select("event_id, COUNT(*) as total").
			Where("id IN ? AND status <> ?", regIDs, models.RegistrationCancelled).
			Group("event_id").
			Scan(&totals).Error; err != nil {
			return apperrors.Internal("bulk cascade: compute totals", err)
		}

		if err := tx.Where("registration_id IN ?", regIDs).Delete(&models.Ticket{}).Error; err != nil {
			return apperrors.Internal("bulk cascade: delete tickets", err)
		}

		if err := tx.Where("id IN ?", regIDs).Delete(&models.Registration{}).Error; err != nil {
			return apperrors.Internal("bulk cascade: delete registrations", err)
		}

		for _, t := range totals {
			result := tx.Model(&models.Event{}).
				Where("id = ? AND current_registrations >= ?", t.EventID, t.Total).
				UpdateColumn("current_registrations", gorm.Expr("current_registrations - ?", t.Total))
			if result.Error != nil {
				return apperrors.Internal("bulk cascade: decrement counters", result.Error)
			}
			if result.RowsAffected == 0 {
				return apperrors.Internal(
					fmt.Sprintf("bulk cascade: counter underflow for event %s", t.EventID), nil)
			}
		}

		return nil
	})
}

func (r *cascadeRepo) DeleteEvent(eventID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return deleteEventTree(tx, eventID)
	})
}

// DeleteOrganizer purges every event the organizer owns. Intentionally skips
// the single-event delete guard: this is an administrative override.
func (r *cascadeRepo) DeleteOrganizer(organizerID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var eventIDs []string
		if err := tx.Model(&models.Event{}).
			Where("organizer_id = ?", organizerID).
			Pluck("id", &eventIDs).Error; err != nil {
			return apperrors.Internal("organizer cascade: list events", err)
		}

		for _, id := range eventIDs {
			if err := deleteEventTree(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *cascadeRepo) CancelEventTickets(eventID string) error {
	result := r.db.Model(&models.Ticket{}).
		Where("event_id = ? AND status = ?", eventID, models.TicketValid).
		Update("status", models.TicketCancelled)
	if result.Error != nil {
		return apperrors.Internal("failed to cancel event tickets", result.Error)
	}
	return nil
}

// deleteEventTree removes an event and all dependents inside the caller's
// transaction: tickets first, then registrations, then the event row.
func deleteEventTree(tx *gorm.DB, eventID string) error {
	if err := tx.Where("event_id = ?", eventID).Delete(&models.Ticket{}).Error; err != nil {
		return apperrors.Internal("event cascade: delete tickets", err)
	}
	if err := tx.Where("event_id = ?", eventID).Delete(&models.Registration{}).Error; err != nil {
		return apperrors.Internal("event cascade: delete registrations", err)
	}
	if err := tx.Where("id = ?", eventID).Delete(&models.Event{}).Error; err != nil {
		return apperrors.Internal("event cascade: delete event", err)
	}
	return nil
}
