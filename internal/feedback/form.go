package feedback

import (
	"context"
	"errors"
	"sync"

	"booking-portal/internal/models"
	"booking-portal/internal/repository"
	"booking-portal/internal/validation"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

var (
	ErrSubmitDisabled = errors.New("feedback submission is disabled")
	ErrDeleteDeclined = errors.New("feedback deletion was not confirmed")
)

const (
	SubmittedTitle = "Your feedback has been submitted!"
	SubmittedText  = "Thank you!"
	FailedTitle    = "Oops..."
	FailedText     = "Something went wrong!"
	DeletePrompt   = "delete?"
	DeletedTitle   = "Deleted"
)

// Repository is the part of the data layer the form writes through.
type Repository interface {
	GetBySessionBooking(ctx context.Context, sessionBookingID string) (*models.SessionFeedback, error)
	Create(ctx context.Context, feedback *models.SessionFeedback) (*models.SessionFeedback, error)
	Delete(ctx context.Context, id string) error
}

// Notifier shows short messages to the user.
type Notifier interface {
	Success(title, text string)
	Error(title, text string)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type State int

const (
	Editing State = iota
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	default:
		return "editing"
	}
}

type FormOptions struct {
	SessionBookingID string
	Repository       Repository
	Notifier         Notifier
	Confirmer        Confirmer
	Validator        *validator.Validate
	Metrics          *Metrics
	Logger           echo.Logger
	// OnSubmitted receives every created record.
	OnSubmitted func(*models.SessionFeedback)
	// Disabled blocks submission, e.g. while the booking is not eligible.
	Disabled bool
}

// Form is the feedback form of one session booking.
type Form struct {
	sessionBookingID string
	repo             Repository
	notifier         Notifier
	confirmer        Confirmer
	validate         *validator.Validate
	metrics          *Metrics
	logger           echo.Logger
	onSubmitted      func(*models.SessionFeedback)

	mu       sync.Mutex
	state    State
	fields   Fields
	disabled bool
	existing *models.SessionFeedback
}

func NewForm(opts FormOptions) *Form {
	v := opts.Validator
	if v == nil {
		v = validation.New()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = discard{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New("feedback")
	}
	return &Form{
		sessionBookingID: opts.SessionBookingID,
		repo:             opts.Repository,
		notifier:         notifier,
		confirmer:        opts.Confirmer,
		validate:         v,
		metrics:          opts.Metrics,
		logger:           logger,
		onSubmitted:      opts.OnSubmitted,
		disabled:         opts.Disabled,
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// SetFields replaces the answers. Ignored unless the form is editing.
func (f *Form) SetFields(fields Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Editing {
		f.fields = fields
	}
}

func (f *Form) SetDisabled(disabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = disabled
}

// CanSubmit reports whether the submit control is enabled.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

func (f *Form) canSubmitLocked() bool {
	return !f.disabled && f.state == Editing
}

// Existing returns the latest stored feedback of the booking, if loaded.
func (f *Form) Existing() *models.SessionFeedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing
}

// Refresh reloads the stored feedback of the booking. A booking takes one
// feedback record, so finding one moves an editing form to Submitted.
func (f *Form) Refresh(ctx context.Context) error {
	existing, err := f.repo.GetBySessionBooking(ctx, f.sessionBookingID)
	if err != nil && !repository.IsNotFound(err) {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing = existing
	if existing != nil && f.state == Editing {
		f.state = Submitted
	}
	return nil
}

// Submit validates the answers and creates the feedback record.
// Only one submission is in flight at a time; others get ErrSubmitDisabled.
func (f *Form) Submit(ctx context.Context) (*models.SessionFeedback, error) {
	f.mu.Lock()
	if !f.canSubmitLocked() {
		f.mu.Unlock()
		return nil, ErrSubmitDisabled
	}
	if err := Validate(f.validate, f.fields); err != nil {
		f.mu.Unlock()
		f.metrics.submission("invalid")
		return nil, err
	}
	f.state = Submitting
	record := f.fields.trimmed().Record(f.sessionBookingID)
	f.mu.Unlock()

	created, err := f.repo.Create(ctx, record)
	if err != nil {
		f.mu.Lock()
		f.state = Editing
		f.mu.Unlock()
		f.metrics.submission("failed")
		f.notifier.Error(FailedTitle, FailedText)
		return nil, err
	}

	f.mu.Lock()
	f.state = Submitted
	f.fields = Fields{}
	f.existing = created
	f.mu.Unlock()
	f.metrics.submission("created")

	if f.onSubmitted != nil {
		f.onSubmitted(created)
	}
	f.notifier.Success(SubmittedTitle, SubmittedText)

	// The record is already stored; a failed reload keeps the created one.
	if err := f.Refresh(ctx); err != nil {
		f.logger.Warnf("Failed to reload feedback of %s: %v", f.sessionBookingID, err)
	}
	return created, nil
}

// Remove deletes a feedback record once the user confirms it.
func (f *Form) Remove(ctx context.Context, id string) error {
	if f.confirmer == nil || !f.confirmer.Confirm(ctx, DeletePrompt) {
		return ErrDeleteDeclined
	}

	if err := f.repo.Delete(ctx, id); err != nil {
		f.metrics.deletion("failed")
		f.notifier.Error(FailedTitle, repository.Message(err))
		return err
	}
	f.metrics.deletion("deleted")
	f.notifier.Success(DeletedTitle, "")

	f.mu.Lock()
	// Removing the booking's record reopens the form.
	if f.existing != nil && f.existing.ID == id {
		f.existing = nil
		if f.state == Submitted {
			f.state = Editing
		}
	}
	f.mu.Unlock()
	if f.sessionBookingID != "" {
		if err := f.Refresh(ctx); err != nil {
			f.logger.Warnf("Failed to reload feedback of %s: %v", f.sessionBookingID, err)
		}
	}
	return nil
}

type discard struct{}

func (discard) Success(title, text string) {}
func (discard) Error(title, text string)   {}
