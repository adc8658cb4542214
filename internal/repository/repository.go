// Package repository is the data-access boundary of the booking screens.
//
// The screens only see the Repository interface. Store satisfies it against the
// local database, Client against a remote deployment of the booking API.
package repository

import (
	"context"

	"booking-portal/internal/models"
)

type SessionBookingRepository interface {
	GetOne(ctx context.Context, id string) (*models.SessionBooking, error)
	ListSessionBookings(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error)
}

type FeedbackRepository interface {
	GetAll(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error)
	GetBySessionBooking(ctx context.Context, sessionBookingID string) (*models.SessionFeedback, error)
	Create(ctx context.Context, feedback *models.SessionFeedback) (*models.SessionFeedback, error)
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	GetMe(ctx context.Context) (*models.User, error)
}

type Repository interface {
	SessionBookingRepository
	FeedbackRepository
	UserRepository
}
