package repository

import (
	"context"
	"errors"
	"fmt"

	"booking-portal/internal/booking"
	"booking-portal/internal/models"
	"booking-portal/internal/validation"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator"
	"gorm.io/gorm"
)

var _ Repository = (*Store)(nil)

// Store serves the repository port from the local database on behalf of one user.
type Store struct {
	db        *gorm.DB
	userID    string
	clock     clock.Clock
	validator *validator.Validate
}

func NewStore(db *gorm.DB, clk clock.Clock) *Store {
	return &Store{
		db:        db,
		clock:     clk,
		validator: validation.New(),
	}
}

// ForUser returns a copy of the store acting as userID.
func (s *Store) ForUser(userID string) *Store {
	scoped := *s
	scoped.userID = userID
	return &scoped
}

func (s *Store) GetMe(ctx context.Context) (*models.User, error) {
	user, err := models.GetUserByID(s.db.WithContext(ctx), s.userID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", s.userID, ErrNotFound)
	}
	return user, err
}

func (s *Store) GetOne(ctx context.Context, id string) (*models.SessionBooking, error) {
	b, err := models.GetSessionBookingByID(s.db.WithContext(ctx), id)
	if errors.Is(err, models.ErrSessionBookingNotFound) {
		return nil, fmt.Errorf("session booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	// Bookings of other users are reported as missing
	if !b.Involves(s.userID) {
		return nil, fmt.Errorf("session booking %s: %w", id, ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListSessionBookings(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error) {
	return models.ListSessionBookingsForUser(s.db.WithContext(ctx), s.userID, p)
}

func (s *Store) GetAll(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error) {
	return models.ListSessionFeedbackForUser(s.db.WithContext(ctx), s.userID, p)
}

func (s *Store) GetBySessionBooking(ctx context.Context, sessionBookingID string) (*models.SessionFeedback, error) {
	if _, err := s.GetOne(ctx, sessionBookingID); err != nil {
		return nil, err
	}
	f, err := models.GetFeedbackBySessionBooking(s.db.WithContext(ctx), sessionBookingID)
	if errors.Is(err, models.ErrFeedbackNotFound) {
		return nil, fmt.Errorf("feedback for session booking %s: %w", sessionBookingID, ErrNotFound)
	}
	return f, err
}

// Create stores feedback for a booking the user takes part in once the session
// is over. A booking takes one feedback record; a second one is a conflict.
func (s *Store) Create(ctx context.Context, feedback *models.SessionFeedback) (*models.SessionFeedback, error) {
	if err := s.validator.Struct(feedback); err != nil {
		return nil, &ValidationError{
			Message: "feedback is incomplete",
			Fields:  validation.FieldErrors(err),
		}
	}

	b, err := s.GetOne(ctx, feedback.SessionBookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Eligible(s.clock.Now(), b) {
		return nil, fmt.Errorf("feedback opens after the session ends: %w", ErrConflict)
	}
	_, err = models.GetFeedbackBySessionBooking(s.db.WithContext(ctx), feedback.SessionBookingID)
	if err == nil {
		return nil, fmt.Errorf("feedback for session booking %s already exists: %w", feedback.SessionBookingID, ErrConflict)
	}
	if !errors.Is(err, models.ErrFeedbackNotFound) {
		return nil, err
	}

	created := &models.SessionFeedback{
		SessionBookingID: feedback.SessionBookingID,
		UnclearTopic:     feedback.UnclearTopic,
		UsefulTopic:      feedback.UsefulTopic,
		Recommendation:   feedback.Recommendation,
		MentorPacing:     feedback.MentorPacing,
		ImportantTopic:   feedback.ImportantTopic,
		Comment:          feedback.Comment,
	}
	if err := models.CreateSessionFeedback(s.db.WithContext(ctx), created); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("feedback for session booking %s already exists: %w", feedback.SessionBookingID, ErrConflict)
		}
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return created, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	f, err := models.GetSessionFeedbackByID(s.db.WithContext(ctx), id)
	if errors.Is(err, models.ErrFeedbackNotFound) {
		return fmt.Errorf("feedback %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if f.SessionBooking == nil || !f.SessionBooking.Involves(s.userID) {
		return fmt.Errorf("feedback %s: %w", id, ErrNotFound)
	}

	err = models.DeleteSessionFeedback(s.db.WithContext(ctx), id)
	if errors.Is(err, models.ErrFeedbackNotFound) {
		return fmt.Errorf("feedback %s: %w", id, ErrNotFound)
	}
	return err
}
