// Package notify posts run outcomes to Slack. Notification is best-effort
// and entirely optional: without a token and channel it is a no-op.
package notify

import (
	"log"

	"github.com/slack-go/slack"
)

// PostRunSummary sends the run summary text to the configured channel.
func PostRunSummary(botToken, channelID, text string) {
	if botToken == "" || channelID == "" {
		return
	}
	api := slack.New(botToken)
	if _, _, err := api.PostMessage(channelID, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("notify slack error: %v", err)
		return
	}
	log.Printf("notify slack posted channel=%s", channelID)
}
