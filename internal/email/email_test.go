package email

import (
	"testing"
	"time"

	"booking-portal/internal/models"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFeedbackReceived(t *testing.T) {
	c := NewResendEmailClient(nil, "noreply@example.com", log.New("test"))
	mentor := &models.User{FirstName: "Ada", Email: "ada@example.com"}
	booking := &models.SessionBooking{
		ID:            "b1",
		StartDateTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Attendee:      &models.User{FirstName: "Jane", LastName: "Doe"},
		SessionPlan:   models.SessionPlan{Title: "Go <basics>"},
	}
	feedback := &models.SessionFeedback{
		UnclearTopic:   "Channels",
		UsefulTopic:    "Interfaces",
		Recommendation: "Yes",
		MentorPacing:   "ok",
		ImportantTopic: "Errors",
		Comment:        "<script>",
	}

	body, err := c.renderFeedbackReceived(mentor, booking, feedback)
	require.NoError(t, err)

	assert.Contains(t, body, "Hi Ada,")
	assert.Contains(t, body, "Jane Doe left feedback")
	assert.Contains(t, body, "Go &lt;basics&gt;")
	assert.Contains(t, body, "Jan 1, 2024 09:00")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "{comment}")
}

func TestSendFeedbackReceivedEmail_WithoutClient(t *testing.T) {
	var c *ResendEmailClient
	// Must not panic when email is not configured
	c.SendFeedbackReceivedEmail(&models.User{}, &models.SessionBooking{}, &models.SessionFeedback{})
	c.SendAsync("a@example.com", "subject", "body")
}

func TestSessionTitle(t *testing.T) {
	assert.Equal(t, "your session", sessionTitle(&models.SessionBooking{}))
	assert.Equal(t, "Intro", sessionTitle(&models.SessionBooking{SessionPlan: models.SessionPlan{Title: "Intro"}}))
}
