package handlers

import (
	"errors"
	"net/http"

	"booking-portal/internal/booking"
	"booking-portal/internal/common"
	"booking-portal/internal/feedback"
	"booking-portal/internal/models"
	"booking-portal/internal/notifications"
	"booking-portal/internal/repository"

	"github.com/labstack/echo/v4"
)

const signInPath = "/sign-in"

const (
	feedbackClosedText     = "Feedback opens once the session has ended."
	bookingUnavailableText = "This session booking is not available."
	alreadySubmittedText   = "Feedback for this session has already been submitted."
)

// PageHandler serves the server rendered booking screens.
type PageHandler struct {
	*common.ServerState
}

func NewPageHandler(state *common.ServerState) *PageHandler {
	return &PageHandler{ServerState: state}
}

type pageData struct {
	Title   string
	User    *models.User
	Flashes []notifications.Flash
}

type BookingsPage struct {
	pageData
	Table booking.Table
}

type FormView struct {
	Fields    feedback.Fields
	Errors    map[string]string
	CanSubmit bool
}

type BookingPage struct {
	pageData
	BookingID    string
	Detail       *booking.Detail
	Feedback     []models.SessionFeedback
	Existing     *models.SessionFeedback
	ShowFeedback bool
	Form         FormView
}

type ConfirmPage struct {
	pageData
	Prompt           string
	FeedbackID       string
	SessionBookingID string
}

type SignInPage struct {
	pageData
	Email string
	Error string
}

func (h *PageHandler) page(c echo.Context, title string, user *models.User) pageData {
	return pageData{Title: title, User: user, Flashes: notifications.Flashes(c)}
}

func (h *PageHandler) SignInForm(c echo.Context) error {
	return c.Render(http.StatusOK, "sign-in.html", SignInPage{pageData: h.page(c, "Sign in", nil)})
}

func (h *PageHandler) SignIn(c echo.Context) error {
	req := &SignInRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	failed := func(message string) error {
		return c.Render(http.StatusUnauthorized, "sign-in.html", SignInPage{
			pageData: h.page(c, "Sign in", nil),
			Email:    req.Email,
			Error:    message,
		})
	}

	if err := c.Validate(req); err != nil {
		return failed("Enter your email and password")
	}
	token, err := signIn(h.ServerState, req)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnauthorized {
			return failed("Invalid email or password")
		}
		return err
	}

	setTokenCookie(c, token, h.Config.Auth.TokenTTL, h.Config.Server.TLS.Enabled)
	return c.Redirect(http.StatusSeeOther, "/bookings")
}

// Bookings renders the selection table.
func (h *PageHandler) Bookings(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return h.pageError(c, err)
	}
	p, err := parsePagination(c, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	user, _ := repo.GetMe(ctx)
	view := booking.NewDetailView(repo, h.Clock)

	return c.Render(http.StatusOK, "bookings.html", BookingsPage{
		pageData: h.page(c, "Session bookings", user),
		Table:    view.LoadTable(ctx, p),
	})
}

// Booking renders the detail of one booking. ?feedback=1 opens the feedback
// modal when the booking accepts feedback.
func (h *PageHandler) Booking(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return h.pageError(c, err)
	}

	view, err := h.loadView(c, repo)
	if err != nil {
		return h.pageError(c, err)
	}
	if c.QueryParam("feedback") == "1" {
		if err := view.OpenFeedback(); err != nil {
			c.Logger().Debugf("Feedback modal not opened for %s: %v", view.UID(), err)
		}
	}

	form := h.newForm(c, repo, view)
	return h.renderBooking(c, http.StatusOK, view, form, nil)
}

// SubmitFeedback handles the feedback modal form.
func (h *PageHandler) SubmitFeedback(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return h.pageError(c, err)
	}

	view, err := h.loadView(c, repo)
	if err != nil {
		return h.pageError(c, err)
	}
	detailURL := "/bookings/" + view.UID()

	if err := view.OpenFeedback(); err != nil {
		message := feedbackClosedText
		if view.Detail().BookingErr != nil {
			message = bookingUnavailableText
		}
		notifications.NewFlashNotifier(c).Error(feedback.FailedTitle, message)
		return c.Redirect(http.StatusSeeOther, detailURL)
	}

	var fields feedback.Fields
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	form := h.newForm(c, repo, view)
	form.SetFields(fields)

	ctx := c.Request().Context()
	if _, err := form.Submit(ctx); err != nil {
		var verr *feedback.ValidationError
		if errors.As(err, &verr) {
			return h.renderBooking(c, http.StatusUnprocessableEntity, view, form, verr.Fields)
		}
		if errors.Is(err, feedback.ErrSubmitDisabled) {
			notifications.NewFlashNotifier(c).Error(feedback.FailedTitle, alreadySubmittedText)
			return c.Redirect(http.StatusSeeOther, detailURL)
		}
		c.Logger().Warnf("Feedback submission for %s failed: %v", view.UID(), err)
		return h.renderBooking(c, http.StatusOK, view, form, nil)
	}

	return c.Redirect(http.StatusSeeOther, detailURL)
}

// DeleteFeedback removes a feedback record after the confirm step.
func (h *PageHandler) DeleteFeedback(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return h.pageError(c, err)
	}

	id := c.Param("id")
	bookingID := c.FormValue("session_booking_id")
	form := feedback.NewForm(feedback.FormOptions{
		SessionBookingID: bookingID,
		Repository:       repo,
		Notifier:         notifications.NewFlashNotifier(c),
		Confirmer:        confirmation(c.FormValue("confirm") == "yes"),
		Metrics:          h.FeedbackMetrics,
		Logger:           c.Logger(),
	})

	err = form.Remove(c.Request().Context(), id)
	if errors.Is(err, feedback.ErrDeleteDeclined) {
		user, _ := repo.GetMe(c.Request().Context())
		return c.Render(http.StatusOK, "confirm.html", ConfirmPage{
			pageData:         h.page(c, "Delete feedback", user),
			Prompt:           feedback.DeletePrompt,
			FeedbackID:       id,
			SessionBookingID: bookingID,
		})
	}
	if err != nil {
		c.Logger().Warnf("Failed to delete feedback %s: %v", id, err)
	}

	if bookingID == "" {
		return c.Redirect(http.StatusSeeOther, "/bookings")
	}
	return c.Redirect(http.StatusSeeOther, "/bookings/"+bookingID)
}

func (h *PageHandler) loadView(c echo.Context, repo repository.Repository) (*booking.DetailView, error) {
	view := booking.NewDetailView(repo, h.Clock)
	if err := view.Select(c.Param("id")); err != nil {
		return nil, err
	}
	if _, err := view.Load(c.Request().Context()); err != nil {
		return nil, err
	}
	return view, nil
}

// newForm builds the booking's form and loads its stored feedback, which
// locks the form once the booking has been reviewed.
func (h *PageHandler) newForm(c echo.Context, repo repository.Repository, view *booking.DetailView) *feedback.Form {
	form := feedback.NewForm(feedback.FormOptions{
		SessionBookingID: view.UID(),
		Repository:       repo,
		Notifier:         notifications.NewFlashNotifier(c),
		Validator:        h.Validator,
		Metrics:          h.FeedbackMetrics,
		Logger:           c.Logger(),
		OnSubmitted:      feedbackSubmitted(c, h.ServerState, repo),
		Disabled:         !view.Eligible(),
	})
	if err := form.Refresh(c.Request().Context()); err != nil {
		c.Logger().Warnf("Failed to load feedback of %s: %v", view.UID(), err)
	}
	return form
}

func (h *PageHandler) renderBooking(c echo.Context, status int, view *booking.DetailView, form *feedback.Form, errs map[string]string) error {
	detail := view.Detail()

	title := "Session booking"
	if detail.Booking != nil && detail.Booking.SessionPlan.Title != "" {
		title = detail.Booking.SessionPlan.Title
	}

	var own []models.SessionFeedback
	for _, f := range detail.Feedback {
		if f.SessionBookingID == view.UID() {
			own = append(own, f)
		}
	}

	return c.Render(status, "booking.html", BookingPage{
		pageData:     h.page(c, title, detail.User),
		BookingID:    view.UID(),
		Detail:       detail,
		Feedback:     own,
		Existing:     form.Existing(),
		ShowFeedback: view.ShowFeedback(),
		Form: FormView{
			Fields:    form.Fields(),
			Errors:    errs,
			CanSubmit: form.CanSubmit(),
		},
	})
}

func (h *PageHandler) pageError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errUnknownUser), errors.Is(err, ErrNoToken):
		return c.Redirect(http.StatusSeeOther, signInPath)
	case errors.Is(err, booking.ErrNoSelection):
		return c.Redirect(http.StatusSeeOther, "/bookings")
	default:
		return httpError(c, err)
	}
}
