package migrations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"github.com/sunny07-bar/website-sub000/entity"
)

type DataLake interface {
	GetEvents(ctx context.Context, names ...string) ([]entity.DataLakeEvent, error)
}

type OpsOrdersReadModel interface {
	OnOrderPlaced(ctx context.Context, event *entity.OrderPlaced_v1) error
	OnOrderPaid(ctx context.Context, event *entity.OrderPaid_v1) error
	OnTicketsIssued(ctx context.Context, event *entity.TicketsIssued_v1) error
	OnTicketRedeemed(ctx context.Context, event *entity.TicketRedeemed_v1) error
	OnReconciliationRequired(ctx context.Context, event *entity.ReconciliationRequired_v1) error
}

var replayedEvents = []string{
	"OrderPlaced_v1",
	"OrderPaid_v1",
	"TicketsIssued_v1",
	"TicketRedeemed_v1",
	"ReconciliationRequired_v1",
}

// MigrateReadModel replays the events log into the ops orders read model.
func MigrateReadModel(ctx context.Context, dl DataLake, rm OpsOrdersReadModel) error {
	logger := log.FromContext(ctx)
	logger.Info("Migrating read model")

	events, err := dl.GetEvents(ctx, replayedEvents...)
	if err != nil {
		return fmt.Errorf("could not get events from data lake: %w", err)
	}

	logger.WithField("events_count", len(events)).Info("Has events to migrate")

	for _, event := range events {
		start := time.Now()

		logger := logger.WithFields(logrus.Fields{
			"event_name": event.Name,
			"event_id":   event.ID,
		})
		logger.Debug("Migrating event")

		err := migrateEvent(ctx, event, rm)
		if err != nil {
			return fmt.Errorf("could not migrate event %s (%s): %w", event.ID, event.Name, err)
		}

		logger.WithField("duration", time.Since(start)).Debug("Event migrated")
	}

	logger.Info("Read model migrated")

	return nil
}

func migrateEvent(ctx context.Context, event entity.DataLakeEvent, rm OpsOrdersReadModel) error {
	switch event.Name {
	case "OrderPlaced_v1":
		e, err := unmarshalDataLakeEvent[entity.OrderPlaced_v1](event)
		if err != nil {
			return err
		}
		return rm.OnOrderPlaced(ctx, e)
	case "OrderPaid_v1":
		e, err := unmarshalDataLakeEvent[entity.OrderPaid_v1](event)
		if err != nil {
			return err
		}
		return rm.OnOrderPaid(ctx, e)
	case "TicketsIssued_v1":
		e, err := unmarshalDataLakeEvent[entity.TicketsIssued_v1](event)
		if err != nil {
			return err
		}
		return rm.OnTicketsIssued(ctx, e)
	case "TicketRedeemed_v1":
		e, err := unmarshalDataLakeEvent[entity.TicketRedeemed_v1](event)
		if err != nil {
			return err
		}
		return rm.OnTicketRedeemed(ctx, e)
	case "ReconciliationRequired_v1":
		e, err := unmarshalDataLakeEvent[entity.ReconciliationRequired_v1](event)
		if err != nil {
			return err
		}
		return rm.OnReconciliationRequired(ctx, e)
	default:
		log.FromContext(ctx).WithField("event_name", event.Name).Warn("Skipping unknown event")
		return nil
	}
}

func unmarshalDataLakeEvent[T any](event entity.DataLakeEvent) (*T, error) {
	eventInstance := new(T)

	err := json.Unmarshal(event.Payload, eventInstance)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal event %s: %w", event.Name, err)
	}

	return eventInstance, nil
}
