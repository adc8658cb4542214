package notifications

import (
	"context"
	"fmt"

	"booking-portal/internal/models"

	"github.com/slack-go/slack"
)

// SlackNotifier posts operator messages to an incoming webhook.
// A notifier without a webhook URL drops every message.
type SlackNotifier struct {
	webhookURL string
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

func (n *SlackNotifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// Send posts a plain text message.
func (n *SlackNotifier) Send(ctx context.Context, text string) error {
	if !n.Enabled() {
		return nil
	}
	return slack.PostWebhookContext(ctx, n.webhookURL, &slack.WebhookMessage{Text: text})
}

// FeedbackReceived posts a summary of a new feedback record.
func (n *SlackNotifier) FeedbackReceived(ctx context.Context, booking *models.SessionBooking, feedback *models.SessionFeedback) error {
	if !n.Enabled() {
		return nil
	}

	title := booking.ID
	if booking.SessionPlan.Title != "" {
		title = booking.SessionPlan.Title
	}

	fields := []slack.AttachmentField{
		{Title: "Still unclear", Value: feedback.UnclearTopic},
		{Title: "Most useful topics", Value: feedback.UsefulTopic},
		{Title: "It would help me if you would", Value: feedback.Recommendation, Short: true},
		{Title: "Mentor pacing", Value: feedback.MentorPacing, Short: true},
		{Title: "Important to cover", Value: feedback.ImportantTopic},
	}
	if feedback.Comment != "" {
		fields = append(fields, slack.AttachmentField{Title: "Comment", Value: feedback.Comment})
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("New feedback for %s", title),
		Attachments: []slack.Attachment{{
			Color:  "good",
			Fields: fields,
			Footer: fmt.Sprintf("booking %s, feedback %s", booking.ID, feedback.ID),
		}},
	}
	return slack.PostWebhookContext(ctx, n.webhookURL, msg)
}
