// Package notification turns ledger events into user-facing alerts. Delivery
// transports (email, SMS, push) live behind the Notifier interface and are
// owned by the downstream service.
package notification

import (
	"context"
	"log/slog"
)

// Channel selects the delivery transport for a message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Message describes one notification request.
type Message struct {
	Recipient string
	Subject   string
	Body      string
	Channel   Channel
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"channel", message.Channel,
		"recipient", message.Recipient,
		"subject", message.Subject,
		"body", message.Body)
	return nil
}
