package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/sunny07-bar/website-sub000/entity"
	"github.com/sunny07-bar/website-sub000/pubsub/bus"
	"github.com/sunny07-bar/website-sub000/pubsub/event"
	"github.com/sunny07-bar/website-sub000/pubsub/outbox"
)

type DataLake interface {
	StoreEvent(ctx context.Context, dataLakeEvent entity.DataLakeEvent) error
}

type OpsOrdersReadModel interface {
	OnOrderPlaced(ctx context.Context, event *entity.OrderPlaced_v1) error
	OnOrderPaid(ctx context.Context, event *entity.OrderPaid_v1) error
	OnTicketsIssued(ctx context.Context, event *entity.TicketsIssued_v1) error
	OnTicketRedeemed(ctx context.Context, event *entity.TicketRedeemed_v1) error
	OnReconciliationRequired(ctx context.Context, event *entity.ReconciliationRequired_v1) error
}

func NewWatermillRouter(
	postgresSubscriber message.Subscriber,
	redisPublisher message.Publisher,
	redisClient *redis.Client,
	eventProcessorConfig cqrs.EventProcessorConfig,
	eventHandler event.Handler,
	opsReadModel OpsOrdersReadModel,
	dataLake DataLake,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	useMiddlewares(router, watermillLogger)

	outbox.AddForwarderHandler(postgresSubscriber, redisPublisher, router, watermillLogger)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create event processor: %w", err)
	}

	err = eventProcessor.AddHandlers(
		eventHandler.DeliverTicketsHandler(),
		eventHandler.IssueReceiptHandler(),
		eventHandler.ReconciliationHandler(),
		cqrs.NewEventHandler(
			"ops_read_model.OnOrderPlaced",
			opsReadModel.OnOrderPlaced,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnOrderPaid",
			opsReadModel.OnOrderPaid,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnTicketsIssued",
			opsReadModel.OnTicketsIssued,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnTicketRedeemed",
			opsReadModel.OnTicketRedeemed,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnReconciliationRequired",
			opsReadModel.OnReconciliationRequired,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("could not add handlers to event processor: %w", err)
	}

	// each handler of the "events" topic needs its own consumer group to see every message
	splitterSubscriber, err := NewRedisSubscriber(redisClient, "svc-tickets.events_splitter", watermillLogger)
	if err != nil {
		return nil, err
	}
	dataLakeSubscriber, err := NewRedisSubscriber(redisClient, "svc-tickets.store_to_data_lake", watermillLogger)
	if err != nil {
		return nil, err
	}

	router.AddNoPublisherHandler(
		"events_splitter",
		bus.EventsTopic,
		splitterSubscriber,
		func(msg *message.Message) error {
			eventName := eventProcessorConfig.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("could not get event name from message")
			}

			return redisPublisher.Publish("events."+eventName, msg)
		},
	)

	router.AddNoPublisherHandler(
		"store_to_data_lake",
		bus.EventsTopic,
		dataLakeSubscriber,
		func(msg *message.Message) error {
			eventName := eventProcessorConfig.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("could not get event name from message")
			}

			// only the header is needed, the payload is stored as is
			type Event struct {
				Header entity.EventHeader `json:"header"`
			}

			var event Event
			if err := eventProcessorConfig.Marshaler.Unmarshal(msg, &event); err != nil {
				return fmt.Errorf("could not unmarshal event: %w", err)
			}

			return dataLake.StoreEvent(
				msg.Context(),
				entity.DataLakeEvent{
					ID:          event.Header.ID,
					PublishedAt: event.Header.PublishedAt,
					Name:        eventName,
					Payload:     msg.Payload,
				},
			)
		},
	)

	return router, nil
}
