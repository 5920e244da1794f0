package notifier

import (
	"context"

	"library/pkg/logger"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Notifier delivers one rendered notification to a recipient.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Notification struct {
	Subject   string
	Body      string
	Recipient string
}

// LogNotifier writes notifications to the structured log. It stands in for
// a real email or SMS gateway.
type LogNotifier struct {
	channel string
	log     *logger.Logger
}

func NewEmailNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{channel: ChannelEmail, log: log}
}

func NewSMSNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{channel: ChannelSMS, log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info("Notification sent",
		"channel", n.channel,
		"recipient", notification.Recipient,
		"subject", notification.Subject,
		"body", notification.Body,
	)
	return nil
}
