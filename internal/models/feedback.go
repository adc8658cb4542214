package models

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
)

var ErrFeedbackNotFound = errors.New("feedback not found")

// SessionFeedback is submitted by an attendee once a booked session has ended.
// Records are created and deleted, never edited.
type SessionFeedback struct {
	ID               string          `json:"id" gorm:"primaryKey"`
	SessionBookingID string          `json:"session_booking_id" gorm:"not null;uniqueIndex" validate:"required"`
	SessionBooking   *SessionBooking `json:"-"`
	UnclearTopic     string          `json:"unclear_topic" gorm:"not null" validate:"required"`
	UsefulTopic      string          `json:"useful_topic" gorm:"not null" validate:"required"`
	Recommendation   string          `json:"recommendation" gorm:"not null" validate:"required"`
	MentorPacing     string          `json:"mentor_pacing" gorm:"not null" validate:"required"`
	ImportantTopic   string          `json:"important_topic" gorm:"not null" validate:"required"`
	Comment          string          `json:"comment"` // Optional free text
	CreatedAt        time.Time       `json:"created_at"`
}

func (f *SessionFeedback) BeforeCreate(tx *gorm.DB) (err error) {
	return assignID(&f.ID)
}

func CreateSessionFeedback(db *gorm.DB, feedback *SessionFeedback) error {
	return db.Create(feedback).Error
}

func GetSessionFeedbackByID(db *gorm.DB, id string) (*SessionFeedback, error) {
	var feedback SessionFeedback
	result := db.Preload("SessionBooking").Where("id = ?", id).First(&feedback)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, result.Error
	}
	return &feedback, nil
}

// GetFeedbackBySessionBooking returns the feedback of a booking.
func GetFeedbackBySessionBooking(db *gorm.DB, sessionBookingID string) (*SessionFeedback, error) {
	var feedback SessionFeedback
	result := db.
		Where("session_booking_id = ?", sessionBookingID).
		Order("created_at DESC").
		First(&feedback)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, result.Error
	}
	return &feedback, nil
}

// ListSessionFeedbackForUser pages through feedback on bookings the user takes part in.
func ListSessionFeedbackForUser(db *gorm.DB, userID string, p Pagination) (*FeedbackPage, error) {
	p = p.Normalize()

	scoped := func() *gorm.DB {
		return db.Model(&SessionFeedback{}).
			Joins("JOIN session_bookings ON session_bookings.id = session_feedbacks.session_booking_id").
			Where("session_bookings.attendee_id = ? OR session_bookings.mentor_id = ?", userID, userID)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, err
	}

	docs := []SessionFeedback{}
	err := scoped().
		Select("session_feedbacks.*").
		Order("session_feedbacks.created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}

	return &FeedbackPage{
		Docs:       docs,
		TotalDocs:  total,
		Limit:      p.Limit,
		Page:       p.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}, nil
}

func DeleteSessionFeedback(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&SessionFeedback{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}
