package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-portal/internal/models"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSource is a mock implementation of Source
type MockSource struct {
	GetOneFunc              func(ctx context.Context, id string) (*models.SessionBooking, error)
	ListSessionBookingsFunc func(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error)
	GetAllFunc              func(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error)
	GetMeFunc               func(ctx context.Context) (*models.User, error)
}

func (m *MockSource) GetOne(ctx context.Context, id string) (*models.SessionBooking, error) {
	if m.GetOneFunc != nil {
		return m.GetOneFunc(ctx, id)
	}
	return nil, errors.New("not found")
}

func (m *MockSource) ListSessionBookings(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error) {
	if m.ListSessionBookingsFunc != nil {
		return m.ListSessionBookingsFunc(ctx, p)
	}
	return []models.SessionBooking{}, nil
}

func (m *MockSource) GetAll(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx, p)
	}
	return &models.FeedbackPage{Docs: []models.SessionFeedback{}}, nil
}

func (m *MockSource) GetMe(ctx context.Context) (*models.User, error) {
	if m.GetMeFunc != nil {
		return m.GetMeFunc(ctx)
	}
	return &models.User{ID: "u1", FirstName: "Jane"}, nil
}

var bookingEnd = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func finishedBooking(id string) *models.SessionBooking {
	return &models.SessionBooking{
		ID:            id,
		StartDateTime: bookingEnd.Add(-time.Hour),
		EndDateTime:   bookingEnd,
		Attendee:      &models.User{FirstName: "Jane"},
		SessionPlan:   models.SessionPlan{Title: "Intro"},
	}
}

func newMockClock(at time.Time) *clock.Mock {
	c := clock.NewMock()
	c.Set(at)
	return c
}

func TestDetailView_SelectAndBack(t *testing.T) {
	view := NewDetailView(&MockSource{}, newMockClock(bookingEnd))

	assert.Equal(t, Unselected, view.State())
	assert.ErrorIs(t, view.Select(""), ErrNoSelection)
	assert.Equal(t, Unselected, view.State())

	require.NoError(t, view.Select("b1"))
	assert.Equal(t, Selected, view.State())
	assert.Equal(t, "b1", view.UID())

	view.Back()
	assert.Equal(t, Unselected, view.State())
	assert.Empty(t, view.UID())

	_, err := view.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestDetailView_LoadTable(t *testing.T) {
	source := &MockSource{
		ListSessionBookingsFunc: func(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error) {
			return []models.SessionBooking{*finishedBooking("b1"), *finishedBooking("b2")}, nil
		},
	}
	view := NewDetailView(source, newMockClock(bookingEnd))

	table := view.LoadTable(context.Background(), models.Pagination{})
	require.NoError(t, table.Err)
	assert.Len(t, table.Bookings, 2)
}

func TestDetailView_LoadRequestsFeedbackListing(t *testing.T) {
	var requested models.Pagination
	source := &MockSource{
		GetOneFunc: func(ctx context.Context, id string) (*models.SessionBooking, error) {
			return finishedBooking(id), nil
		},
		GetAllFunc: func(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error) {
			requested = p
			return &models.FeedbackPage{Docs: []models.SessionFeedback{{ID: "f1"}}}, nil
		},
	}
	view := NewDetailView(source, newMockClock(bookingEnd.Add(time.Hour)))
	require.NoError(t, view.Select("b1"))

	detail, err := view.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Limit: 1000, Page: 1}, requested)
	assert.Equal(t, "b1", detail.Booking.ID)
	assert.Len(t, detail.Feedback, 1)
	assert.Equal(t, "u1", detail.User.ID)
	assert.True(t, detail.Eligible)
	assert.Same(t, detail, view.Detail())
}

func TestDetailView_FailedFetchDoesNotBlockOthers(t *testing.T) {
	source := &MockSource{
		GetOneFunc: func(ctx context.Context, id string) (*models.SessionBooking, error) {
			return finishedBooking(id), nil
		},
		GetAllFunc: func(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error) {
			return nil, errors.New("feedback service down")
		},
		GetMeFunc: func(ctx context.Context) (*models.User, error) {
			return nil, errors.New("user service down")
		},
	}
	view := NewDetailView(source, newMockClock(bookingEnd.Add(time.Hour)))
	require.NoError(t, view.Select("b1"))

	detail, err := view.Load(context.Background())
	require.NoError(t, err)
	assert.NoError(t, detail.BookingErr)
	assert.NotNil(t, detail.Booking)
	assert.Error(t, detail.FeedbackErr)
	assert.Empty(t, detail.Feedback)
	assert.Error(t, detail.UserErr)
	assert.True(t, detail.Eligible)
}

func TestDetailView_MissingBookingFailsClosed(t *testing.T) {
	view := NewDetailView(&MockSource{}, newMockClock(bookingEnd.Add(time.Hour)))
	require.NoError(t, view.Select("b1"))

	detail, err := view.Load(context.Background())
	require.NoError(t, err)
	assert.Error(t, detail.BookingErr)
	assert.False(t, detail.Eligible)
	assert.ErrorIs(t, view.OpenFeedback(), ErrFeedbackNotAllowed)
	assert.False(t, view.ShowFeedback())
}

func TestDetailView_EligibilityFollowsClock(t *testing.T) {
	clk := newMockClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	source := &MockSource{
		GetOneFunc: func(ctx context.Context, id string) (*models.SessionBooking, error) {
			return finishedBooking(id), nil
		},
	}
	view := NewDetailView(source, clk)
	require.NoError(t, view.Select("b1"))

	// Feedback is inert before the first load and before the session ends
	assert.ErrorIs(t, view.OpenFeedback(), ErrFeedbackNotAllowed)

	detail, err := view.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, detail.Eligible)
	assert.ErrorIs(t, view.OpenFeedback(), ErrFeedbackNotAllowed)

	clk.Set(time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC))
	assert.True(t, view.Eligible())
	require.NoError(t, view.OpenFeedback())
	assert.True(t, view.ShowFeedback())

	view.CloseFeedback()
	assert.False(t, view.ShowFeedback())
}

func TestDetailView_BackClosesModal(t *testing.T) {
	source := &MockSource{
		GetOneFunc: func(ctx context.Context, id string) (*models.SessionBooking, error) {
			return finishedBooking(id), nil
		},
	}
	view := NewDetailView(source, newMockClock(bookingEnd.Add(time.Hour)))
	require.NoError(t, view.Select("b1"))
	_, err := view.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, view.OpenFeedback())

	view.Back()
	assert.False(t, view.ShowFeedback())
	assert.ErrorIs(t, view.OpenFeedback(), ErrNoSelection)
}

func TestDetailView_StaleLoadIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	source := &MockSource{
		GetOneFunc: func(ctx context.Context, id string) (*models.SessionBooking, error) {
			close(started)
			<-release
			return finishedBooking(id), nil
		},
	}
	view := NewDetailView(source, newMockClock(bookingEnd.Add(time.Hour)))
	require.NoError(t, view.Select("b1"))

	type result struct {
		detail *Detail
		err    error
	}
	done := make(chan result)
	go func() {
		d, err := view.Load(context.Background())
		done <- result{d, err}
	}()

	<-started
	view.Back()
	close(release)

	res := <-done
	assert.ErrorIs(t, res.err, ErrStaleLoad)
	assert.Nil(t, res.detail)
	assert.Nil(t, view.Detail())
	assert.Equal(t, Unselected, view.State())
}
