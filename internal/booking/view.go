package booking

import (
	"context"
	"errors"
	"sync"

	"booking-portal/internal/models"

	"github.com/benbjohnson/clock"
)

var (
	ErrNoSelection        = errors.New("no session booking selected")
	ErrFeedbackNotAllowed = errors.New("feedback is not available for this session booking")
	ErrStaleLoad          = errors.New("selection changed while loading")
)

// FeedbackListing is the page the detail view requests for the feedback list.
var FeedbackListing = models.Pagination{Limit: 1000, Page: 1}

// Source is what the detail view reads from.
type Source interface {
	GetOne(ctx context.Context, id string) (*models.SessionBooking, error)
	ListSessionBookings(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error)
	GetAll(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error)
	GetMe(ctx context.Context) (*models.User, error)
}

type State int

const (
	Unselected State = iota
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "unselected"
}

// Detail is one load of the selected booking. Each part carries its own
// error so a failed fetch only blanks its own panel.
type Detail struct {
	Booking     *models.SessionBooking
	BookingErr  error
	Feedback    []models.SessionFeedback
	FeedbackErr error
	User        *models.User
	UserErr     error
	Eligible    bool
}

// Table is what the view shows while nothing is selected.
type Table struct {
	Bookings []models.SessionBooking
	Err      error
}

// DetailView holds the selection and modal state of the booking detail screen.
type DetailView struct {
	source Source
	clock  clock.Clock

	mu           sync.Mutex
	uid          string
	generation   uint64
	detail       *Detail
	showFeedback bool
}

func NewDetailView(source Source, clk clock.Clock) *DetailView {
	return &DetailView{source: source, clock: clk}
}

func (v *DetailView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.uid == "" {
		return Unselected
	}
	return Selected
}

// UID returns the selected booking id, empty when unselected.
func (v *DetailView) UID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.uid
}

// Select moves the view to the given booking and drops any previous detail.
func (v *DetailView) Select(uid string) error {
	if uid == "" {
		return ErrNoSelection
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.uid = uid
	v.generation++
	v.detail = nil
	v.showFeedback = false
	return nil
}

// Back returns to the selection table.
func (v *DetailView) Back() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.uid = ""
	v.generation++
	v.detail = nil
	v.showFeedback = false
}

// LoadTable fetches the selection table.
func (v *DetailView) LoadTable(ctx context.Context, p models.Pagination) Table {
	bookings, err := v.source.ListSessionBookings(ctx, p)
	return Table{Bookings: bookings, Err: err}
}

// Load fetches booking, feedback list and current user concurrently.
// A load that finishes after the selection changed is discarded and returns
// ErrStaleLoad without touching the view.
func (v *DetailView) Load(ctx context.Context) (*Detail, error) {
	v.mu.Lock()
	uid, generation := v.uid, v.generation
	v.mu.Unlock()

	if uid == "" {
		return nil, ErrNoSelection
	}

	d := &Detail{}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		d.Booking, d.BookingErr = v.source.GetOne(ctx, uid)
	}()
	go func() {
		defer wg.Done()
		page, err := v.source.GetAll(ctx, FeedbackListing)
		d.FeedbackErr = err
		if err == nil && page != nil {
			d.Feedback = page.Docs
		}
	}()
	go func() {
		defer wg.Done()
		d.User, d.UserErr = v.source.GetMe(ctx)
	}()
	wg.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generation != generation {
		return nil, ErrStaleLoad
	}
	d.Eligible = d.BookingErr == nil && Eligible(v.clock.Now(), d.Booking)
	v.detail = d
	if !d.Eligible {
		v.showFeedback = false
	}
	return d, nil
}

// Detail returns the last applied load, nil before the first load.
func (v *DetailView) Detail() *Detail {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.detail
}

// Eligible recomputes eligibility against the current time.
func (v *DetailView) Eligible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.eligibleLocked()
}

func (v *DetailView) eligibleLocked() bool {
	if v.uid == "" || v.detail == nil || v.detail.BookingErr != nil {
		return false
	}
	return Eligible(v.clock.Now(), v.detail.Booking)
}

// OpenFeedback shows the feedback modal when the booking is eligible.
func (v *DetailView) OpenFeedback() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.uid == "" {
		return ErrNoSelection
	}
	if !v.eligibleLocked() {
		return ErrFeedbackNotAllowed
	}
	v.showFeedback = true
	return nil
}

func (v *DetailView) CloseFeedback() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.showFeedback = false
}

func (v *DetailView) ShowFeedback() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.showFeedback
}
