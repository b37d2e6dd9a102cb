package notify

import (
	"context"
	"fmt"
	"log"

	"docupush-backend/internal/integrations"
	"docupush-backend/internal/models"

	"github.com/slack-go/slack"
)

// Notifier posts push-failure alerts to an ops Slack channel. It is optional:
// a nil Notifier is safe to call, and alerting must never fail a push.
type Notifier struct {
	client  *slack.Client
	channel string
}

// NewNotifier returns nil when the bot token or channel is not configured.
func NewNotifier(botToken, channel string) *Notifier {
	if botToken == "" || channel == "" {
		return nil
	}
	return &Notifier{
		client:  slack.New(botToken),
		channel: channel,
	}
}

// PushFailed posts a short, actionable alert for a failed push.
func (n *Notifier) PushFailed(ctx context.Context, record *models.PushRecord, ierr *integrations.IntegrationError) {
	if n == nil {
		return
	}

	text := fmt.Sprintf("Push %s failed (integration %s, document %s): %s: %s",
		record.ID, record.IntegrationID, record.DocumentID, ierr.Code, ierr.Message)
	if len(ierr.Suggestions) > 0 {
		text += "\nSuggestion: " + ierr.Suggestions[0]
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("WARN [Notifier] Failed to post push-failure alert to Slack: %v", err)
	}
}
