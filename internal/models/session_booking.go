package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSessionBookingNotFound = errors.New("session booking not found")

// BookingStatus is owned by the external booking system; the portal only reads it.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusOngoing   BookingStatus = "ongoing"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusOngoing,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

type SessionPlan struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
}

func (p *SessionPlan) BeforeCreate(tx *gorm.DB) (err error) {
	return assignID(&p.ID)
}

type ChatChannel struct {
	UID  string `json:"uid" gorm:"primaryKey"`
	Name string `json:"name"`
}

func (c *ChatChannel) BeforeCreate(tx *gorm.DB) (err error) {
	return assignID(&c.UID)
}

type SessionBooking struct {
	ID            string        `json:"id" gorm:"primaryKey"`
	StartDateTime time.Time     `json:"start_date_time" gorm:"not null"`
	EndDateTime   time.Time     `json:"end_date_time" gorm:"not null"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(32);not null;default:pending"`
	AttendeeID    *string       `json:"attendee_id,omitempty" gorm:"index"`
	Attendee      *User         `json:"attendee,omitempty"`
	MentorID      *string       `json:"mentor_id,omitempty" gorm:"index"`
	Mentor        *User         `json:"mentor,omitempty"`
	SessionPlanID string        `json:"session_plan_id" gorm:"not null"`
	SessionPlan   SessionPlan   `json:"session_plan"`
	ChatChannelID *string       `json:"chat_channel_id,omitempty"`
	ChatChannel   *ChatChannel  `json:"chat_channel,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (b *SessionBooking) BeforeCreate(tx *gorm.DB) (err error) {
	return assignID(&b.ID)
}

// Involves reports whether the user takes part in the booking as attendee or mentor.
func (b *SessionBooking) Involves(userID string) bool {
	if b.AttendeeID != nil && *b.AttendeeID == userID {
		return true
	}
	return b.MentorID != nil && *b.MentorID == userID
}

func GetSessionBookingByID(db *gorm.DB, id string) (*SessionBooking, error) {
	var booking SessionBooking
	result := db.
		Preload("Attendee").
		Preload("Mentor").
		Preload("SessionPlan").
		Preload("ChatChannel").
		Where("id = ?", id).
		First(&booking)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionBookingNotFound
		}
		return nil, result.Error
	}
	return &booking, nil
}

// ListSessionBookingsForUser returns the bookings the user attends or mentors,
// most recent first.
func ListSessionBookingsForUser(db *gorm.DB, userID string, p Pagination) ([]SessionBooking, error) {
	p = p.Normalize()

	var bookings []SessionBooking
	err := db.
		Preload("Attendee").
		Preload("SessionPlan").
		Where("attendee_id = ? OR mentor_id = ?", userID, userID).
		Order("start_date_time DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func assignID(id *string) error {
	if *id != "" {
		return nil
	}
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = uuidV7.String()
	return nil
}
