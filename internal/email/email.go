package email

import (
	"fmt"
	"html"
	"io/fs"
	"strings"

	"booking-portal/internal/models"
	"booking-portal/web"

	"github.com/labstack/echo/v4"
	resend "github.com/resend/resend-go/v2"
)

// EmailClient is an interface for sending emails
type EmailClient interface {
	SendAsync(toEmail, subject, htmlBody string)
	SendFeedbackReceivedEmail(mentor *models.User, booking *models.SessionBooking, feedback *models.SessionFeedback)
}

// ResendEmailClient implements EmailClient using the Resend service
type ResendEmailClient struct {
	client        *resend.Client
	defaultSender string
	logger        echo.Logger
	templates     fs.FS
}

// NewResendEmailClient creates a new ResendEmailClient
func NewResendEmailClient(client *resend.Client, defaultSender string, logger echo.Logger) *ResendEmailClient {
	return &ResendEmailClient{
		client:        client,
		defaultSender: defaultSender,
		logger:        logger,
		templates:     web.FS,
	}
}

// SendAsync sends an email asynchronously
func (c *ResendEmailClient) SendAsync(toEmail, subject, htmlBody string) {
	if c == nil || c.client == nil {
		return
	}

	if c.defaultSender == "" {
		c.logger.Errorf("Resend default sender not configured, skipping email.")
		return
	}

	go func() {
		params := &resend.SendEmailRequest{
			From:    c.defaultSender,
			To:      []string{toEmail},
			Subject: subject,
			Html:    htmlBody,
		}

		_, err := c.client.Emails.Send(params)
		if err != nil {
			c.logger.Errorf("Failed to send email to %s (Subject: %s): %v", toEmail, subject, err)
		} else {
			c.logger.Infof("Email sent successfully to %s (Subject: %s)", toEmail, subject)
		}
	}()
}

// SendFeedbackReceivedEmail tells the mentor that an attendee left feedback
func (c *ResendEmailClient) SendFeedbackReceivedEmail(mentor *models.User, booking *models.SessionBooking, feedback *models.SessionFeedback) {
	if c == nil || c.client == nil {
		return
	}
	if mentor == nil || mentor.Email == "" || booking == nil || feedback == nil {
		c.logger.Error("Cannot send feedback email without mentor, booking and feedback")
		return
	}

	htmlBody, err := c.renderFeedbackReceived(mentor, booking, feedback)
	if err != nil {
		c.logger.Errorf("Failed to read feedback email template: %v", err)
		return
	}

	subject := fmt.Sprintf("New feedback on %s", sessionTitle(booking))

	c.SendAsync(mentor.Email, subject, htmlBody)
}

func (c *ResendEmailClient) renderFeedbackReceived(mentor *models.User, booking *models.SessionBooking, feedback *models.SessionFeedback) (string, error) {
	templateBytes, err := fs.ReadFile(c.templates, "emails/feedback-received.html")
	if err != nil {
		return "", err
	}

	attendee := "An attendee"
	if booking.Attendee != nil {
		attendee = booking.Attendee.FullName()
	}

	replacer := strings.NewReplacer(
		"{first_name}", html.EscapeString(mentor.FirstName),
		"{attendee_name}", html.EscapeString(attendee),
		"{session_title}", html.EscapeString(sessionTitle(booking)),
		"{session_date}", booking.StartDateTime.Format("Jan 2, 2006 15:04"),
		"{unclear_topic}", html.EscapeString(feedback.UnclearTopic),
		"{useful_topic}", html.EscapeString(feedback.UsefulTopic),
		"{recommendation}", html.EscapeString(feedback.Recommendation),
		"{mentor_pacing}", html.EscapeString(feedback.MentorPacing),
		"{important_topic}", html.EscapeString(feedback.ImportantTopic),
		"{comment}", html.EscapeString(feedback.Comment),
	)
	return replacer.Replace(string(templateBytes)), nil
}

func sessionTitle(booking *models.SessionBooking) string {
	if booking.SessionPlan.Title != "" {
		return booking.SessionPlan.Title
	}
	return "your session"
}
