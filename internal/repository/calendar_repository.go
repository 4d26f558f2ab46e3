package repository

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// GormCalendarRepository is a GORM implementation of CalendarRepository
type GormCalendarRepository struct {
	db *gorm.DB
}

// NewCalendarRepository creates a new CalendarRepository
func NewCalendarRepository(db *gorm.DB) CalendarRepository {
	return &GormCalendarRepository{db: db}
}

func attendees(eventID uint64, userIDs []uint64) []models.EventAttendee {
	rows := make([]models.EventAttendee, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.EventAttendee{EventID: eventID, UserID: id, Response: models.ResponsePending})
	}
	return rows
}

// Create creates the event and a pending attendee row per user
func (r *GormCalendarRepository) Create(event *models.CalendarEvent, attendeeIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Attendees").Create(event).Error; err != nil {
			return err
		}
		rows := attendees(event.ID, attendeeIDs)
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		event.Attendees = rows
		return nil
	})
}

func (r *GormCalendarRepository) visible(organizationID, userID uint64) *gorm.DB {
	attending := r.db.Model(&models.EventAttendee{}).Select("event_id").Where("user_id = ?", userID)
	return r.db.Model(&models.CalendarEvent{}).
		Preload("Attendees").
		Where("organization_id = ?", organizationID).
		Where("(creator_id = ? OR id IN (?))", userID, attending)
}

func (r *GormCalendarRepository) FindVisible(organizationID, userID, id uint64) (*models.CalendarEvent, error) {
	var event models.CalendarEvent
	if err := r.visible(organizationID, userID).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns the visible events overlapping [From, To], by start time
func (r *GormCalendarRepository) List(filter EventFilter) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	query := r.visible(filter.OrganizationID, filter.UserID)
	if filter.From != nil {
		query = query.Where("end_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("start_time <= ?", *filter.To)
	}
	if err := query.Order("start_time ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Update saves the event; when attendeeIDs is set, responses of kept
// attendees survive and new ones start pending
func (r *GormCalendarRepository) Update(event *models.CalendarEvent, attendeeIDs *[]uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Attendees").Save(event).Error; err != nil {
			return err
		}
		if attendeeIDs == nil {
			return nil
		}

		del := tx.Where("event_id = ?", event.ID)
		if len(*attendeeIDs) > 0 {
			del = del.Where("user_id NOT IN ?", *attendeeIDs)
		}
		if err := del.Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}

		var kept []uint64
		if err := tx.Model(&models.EventAttendee{}).
			Where("event_id = ?", event.ID).
			Pluck("user_id", &kept).Error; err != nil {
			return err
		}
		existing := make(map[uint64]bool, len(kept))
		for _, id := range kept {
			existing[id] = true
		}

		var added []uint64
		for _, id := range *attendeeIDs {
			if !existing[id] {
				added = append(added, id)
			}
		}
		rows := attendees(event.ID, added)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *GormCalendarRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CalendarEvent{}, id).Error
	})
}

// Respond records an attendee's answer
func (r *GormCalendarRepository) Respond(eventID, userID uint64, response models.AttendeeResponse) error {
	result := r.db.Model(&models.EventAttendee{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Update("response", response)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
