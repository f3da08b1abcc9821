package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ledgerbus/ledgerbus/internal/eventlog"
	"github.com/ledgerbus/ledgerbus/internal/events"
	"github.com/ledgerbus/ledgerbus/internal/profile"
)

// ConsumerGroup identifies the notifier on the event log.
const ConsumerGroup = "notifier"

// HandlerFunc builds the messages to send for one event. Returning no
// messages skips the event.
type HandlerFunc func(ctx context.Context, event events.Event) []Message

// Consumer subscribes to ledger events and dispatches them through a handler
// registry keyed by event kind. Send failures are logged, never retried into
// the ledger; unparseable payloads are dead-lettered.
type Consumer struct {
	notifier Notifier
	profiles profile.Client
	log      eventlog.Log
	logger   *slog.Logger
	handlers map[events.Kind]HandlerFunc
}

// NewConsumer wires the notification consumer with its default handlers.
func NewConsumer(notifier Notifier, profiles profile.Client, log eventlog.Log, logger *slog.Logger) *Consumer {
	c := &Consumer{
		notifier: notifier,
		profiles: profiles,
		log:      log,
		logger:   logger,
		handlers: make(map[events.Kind]HandlerFunc),
	}
	c.Register(events.KindAccountCreated, c.accountCreated)
	c.Register(events.KindAccountDeactivated, c.accountDeactivated)
	c.Register(events.KindDeposit, c.balanceChange("Deposit received", "A deposit of %d was credited to account %s."))
	c.Register(events.KindWithdrawal, c.balanceChange("Withdrawal alert", "A withdrawal of %d was debited from account %s."))
	c.Register(events.KindTransfer, c.transfer)
	return c
}

// Register installs or replaces the handler for an event kind.
func (c *Consumer) Register(kind events.Kind, handler HandlerFunc) {
	c.handlers[kind] = handler
}

// Run subscribes to both ledger topics until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	return c.log.Subscribe(ctx, []string{events.TopicAccounts, events.TopicTransactions}, ConsumerGroup, c.Handle)
}

// Handle processes one delivered message.
func (c *Consumer) Handle(ctx context.Context, msg eventlog.Message) error {
	var event events.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error("dead-lettering message", "topic", msg.Topic, "id", msg.ID, "error", err)
		return eventlog.PublishDeadLetter(ctx, c.log, msg, "unparseable payload: "+err.Error())
	}

	handler, ok := c.handlers[event.Kind]
	if !ok {
		c.logger.Warn("unhandled event kind", "kind", event.Kind)
		return nil
	}

	for _, message := range handler(ctx, event) {
		if err := c.notifier.Send(ctx, message); err != nil {
			c.logger.Error("notification send failed",
				"channel", message.Channel, "recipient", message.Recipient, "error", err)
		}
	}
	return nil
}

func (c *Consumer) accountCreated(ctx context.Context, event events.Event) []Message {
	return c.fanOut(ctx, event.OwnerID,
		"Your new account",
		fmt.Sprintf("Your account %s has been created successfully.", event.AccountNumber))
}

func (c *Consumer) accountDeactivated(ctx context.Context, event events.Event) []Message {
	return c.fanOut(ctx, event.OwnerID,
		"Account deactivated",
		fmt.Sprintf("Your account %s has been deactivated.", event.AccountNumber))
}

func (c *Consumer) balanceChange(subject, bodyFormat string) HandlerFunc {
	return func(ctx context.Context, event events.Event) []Message {
		return c.fanOut(ctx, event.OwnerID, subject,
			fmt.Sprintf(bodyFormat, event.Amount, event.AccountNumber))
	}
}

func (c *Consumer) transfer(ctx context.Context, event events.Event) []Message {
	return c.fanOut(ctx, event.OwnerID,
		"Transfer sent",
		fmt.Sprintf("A transfer of %d from account %s to account %s was completed.",
			event.Amount, event.AccountNumber, event.CounterpartyNumber))
}

// fanOut resolves the owner's contact details and builds an email message,
// plus an SMS when a phone number is known. When the profile lookup fails
// the notification falls back to the owner id as recipient rather than
// being dropped.
func (c *Consumer) fanOut(ctx context.Context, ownerID, subject, body string) []Message {
	if ownerID == "" {
		return nil
	}

	owner, err := c.profiles.GetOwner(ctx, ownerID)
	if err != nil {
		c.logger.Warn("owner lookup failed, sending unenriched", "owner_id", ownerID, "error", err)
		return []Message{{Recipient: ownerID, Subject: subject, Body: body, Channel: ChannelEmail}}
	}

	messages := []Message{{Recipient: owner.Email, Subject: subject, Body: body, Channel: ChannelEmail}}
	if owner.Phone != "" {
		messages = append(messages, Message{Recipient: owner.Phone, Subject: subject, Body: body, Channel: ChannelSMS})
	}
	return messages
}
