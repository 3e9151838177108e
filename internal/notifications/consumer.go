package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	"github.com/partnerledger/backend/pkg/logger"
	"github.com/partnerledger/backend/pkg/outbox"
	"github.com/partnerledger/backend/pkg/outbox/idempotency"
	"github.com/partnerledger/backend/pkg/outbox/payloads"
)

const payoutNotificationConsumer = "payout-notifications"

type notifier interface {
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
}

// Consumer watches domain events and turns payout milestones into
// notifications for the affected party.
type Consumer struct {
	notifier     notifier
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a payout notification consumer on top of the
// notifications service.
func NewConsumer(svc notifier, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		notifier:     svc,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !handlesEvent(eventType) {
		c.logg.Info(logCtx, "skipping non-payout event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, payoutNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, payoutNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func handlesEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventSettlementPaid, enums.EventBatchPaid, enums.EventCommissionConfirmed:
		return true
	default:
		return false
	}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventSettlementPaid:
		var payload payloads.SettlementStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.notifySettlementPaid(ctx, payload, logCtx)
	case enums.EventBatchPaid:
		var payload payloads.BatchStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.notifyBatchPaid(ctx, payload, logCtx)
	case enums.EventCommissionConfirmed:
		var payload payloads.CommissionStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.notifyCommissionConfirmed(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) notifySettlementPaid(ctx context.Context, payload payloads.SettlementStatusChangedEvent, logCtx context.Context) error {
	if payload.PartyID == uuid.Nil {
		return fmt.Errorf("party id missing")
	}
	link := fmt.Sprintf("/settlements/%s", payload.SettlementID)
	_, err := c.notifier.Notify(ctx, NotifyInput{
		PartyID: payload.PartyID,
		Type:    enums.NotificationTypeSettlementPaid,
		Title:   "Settlement paid",
		Message: fmt.Sprintf("Your %s settlement %s has been paid out.", payload.PartyType, payload.SettlementID),
		Link:    stringPtr(link),
	})
	if err != nil {
		return err
	}
	c.logg.Info(logCtx, "party notified of settlement payout")
	return nil
}

func (c *Consumer) notifyBatchPaid(ctx context.Context, payload payloads.BatchStatusChangedEvent, logCtx context.Context) error {
	if payload.PartnerID == uuid.Nil {
		return fmt.Errorf("partner id missing")
	}
	link := fmt.Sprintf("/batches/%s", payload.BatchID)
	_, err := c.notifier.Notify(ctx, NotifyInput{
		PartyID: payload.PartnerID,
		Type:    enums.NotificationTypeBatchPaid,
		Title:   "Commission batch paid",
		Message: fmt.Sprintf("Your commission batch %s has been paid out.", payload.BatchID),
		Link:    stringPtr(link),
	})
	if err != nil {
		return err
	}
	c.logg.Info(logCtx, "partner notified of batch payout")
	return nil
}

func (c *Consumer) notifyCommissionConfirmed(ctx context.Context, payload payloads.CommissionStatusChangedEvent, logCtx context.Context) error {
	if payload.PartnerID == uuid.Nil {
		return fmt.Errorf("partner id missing")
	}
	_, err := c.notifier.Notify(ctx, NotifyInput{
		PartyID: payload.PartnerID,
		Type:    enums.NotificationTypeCommissionConfirmed,
		Title:   "Commission confirmed",
		Message: fmt.Sprintf("A commission of %d has been confirmed and will be included in your next batch.", payload.NewAmount),
	})
	if err != nil {
		return err
	}
	c.logg.Info(logCtx, "partner notified of confirmed commission")
	return nil
}

func stringPtr(value string) *string {
	return &value
}
