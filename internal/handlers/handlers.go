package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"booking-portal/internal/common"
	"booking-portal/internal/feedback"
	"booking-portal/internal/models"
	"booking-portal/internal/repository"

	"github.com/labstack/echo/v4"
)

const notificationTimeout = 10 * time.Second

type APIHandler struct {
	*common.ServerState
}

type SignInRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type CreateFeedbackRequest struct {
	SessionBookingID string `json:"session_booking_id" validate:"required"`
	feedback.Fields
}

func NewAPIHandler(state *common.ServerState) *APIHandler {
	return &APIHandler{ServerState: state}
}

func (h *APIHandler) ManualSignIn(c echo.Context) error {
	c.Logger().Info("Received manual sign-in request")
	req := &SignInRequest{}

	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := signIn(h.ServerState, req)
	if err != nil {
		return err
	}
	setTokenCookie(c, token, h.Config.Auth.TokenTTL, h.Config.Server.TLS.Enabled)

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// signIn checks the credentials and issues a token.
func signIn(s *common.ServerState, req *SignInRequest) (string, error) {
	u, err := models.GetUserByEmail(s.DB, req.Email)
	if errors.Is(err, models.ErrUserNotFound) {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return "", err
	}

	if !u.CheckPassword(req.Password) {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := s.JwtIssuer.GenerateToken(u.Email)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return token, nil
}

func (h *APIHandler) User(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return httpError(c, err)
	}

	user, err := repo.GetMe(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *APIHandler) ListSessionBookings(c echo.Context) error {
	p, err := parsePagination(c, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return httpError(c, err)
	}

	bookings, err := repo.ListSessionBookings(c.Request().Context(), p)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h *APIHandler) GetSessionBooking(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return httpError(c, err)
	}

	b, err := repo.GetOne(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *APIHandler) ListFeedback(c echo.Context) error {
	p, err := parsePagination(c, h.Config.Feedback.ListLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return httpError(c, err)
	}

	page, err := repo.GetAll(c.Request().Context(), p)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *APIHandler) GetFeedbackBySessionBooking(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return httpError(c, err)
	}

	f, err := repo.GetBySessionBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *APIHandler) CreateFeedback(c echo.Context) error {
	req := &CreateFeedbackRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SessionBookingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "Feedback is incomplete",
			"fields":  map[string]string{"session_booking_id": "required"},
		})
	}

	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return httpError(c, err)
	}

	form := feedback.NewForm(feedback.FormOptions{
		SessionBookingID: req.SessionBookingID,
		Repository:       repo,
		Validator:        h.Validator,
		Metrics:          h.FeedbackMetrics,
		Logger:           c.Logger(),
		OnSubmitted:      feedbackSubmitted(c, h.ServerState, repo),
	})
	ctx := c.Request().Context()
	// A booking that already has feedback leaves the form submitted
	if err := form.Refresh(ctx); err != nil {
		return httpError(c, err)
	}
	form.SetFields(req.Fields)

	created, err := form.Submit(ctx)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *APIHandler) DeleteFeedback(c echo.Context) error {
	repo, err := repositoryFor(c, h.ServerState)
	if err != nil {
		return httpError(c, err)
	}

	// The DELETE request itself is the confirmation
	form := feedback.NewForm(feedback.FormOptions{
		Repository: repo,
		Confirmer:  confirmation(true),
		Metrics:    h.FeedbackMetrics,
		Logger:     c.Logger(),
	})
	if err := form.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// confirmation answers the delete prompt with a decision already taken by
// the request.
type confirmation bool

func (a confirmation) Confirm(ctx context.Context, prompt string) bool {
	return bool(a)
}

// feedbackSubmitted tells the mentor and the operators about new feedback.
// Both run in the background; failures are logged only.
func feedbackSubmitted(c echo.Context, s *common.ServerState, repo repository.Repository) func(*models.SessionFeedback) {
	logger := c.Logger()
	return func(created *models.SessionFeedback) {
		b, err := repo.GetOne(c.Request().Context(), created.SessionBookingID)
		if err != nil {
			logger.Warnf("Failed to load booking %s for feedback notifications: %v", created.SessionBookingID, err)
			return
		}

		if s.EmailClient != nil && b.Mentor != nil {
			s.EmailClient.SendFeedbackReceivedEmail(b.Mentor, b, created)
		}

		if s.Slack.Enabled() {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
				defer cancel()
				if err := s.Slack.FeedbackReceived(ctx, b, created); err != nil {
					logger.Warnf("Failed to post feedback %s to Slack: %v", created.ID, err)
				}
			}()
		}
	}
}
