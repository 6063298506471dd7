package bus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sunny07-bar/website-sub000/entity"
)

// EventsTopic is where every event lands before it is stored to the data
// lake and split to per-event topics.
const EventsTopic = "events"

func NewEventBus(pub message.Publisher) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			event, ok := params.Event.(entity.BusEvent)
			if !ok {
				return "", fmt.Errorf("invalid event type: %T doesn't implement entity.BusEvent", params.Event)
			}

			// the data lake is keyed by the header id
			if event.EventHeader().ID == "" {
				return "", fmt.Errorf("event %s has no header id", params.EventName)
			}

			return EventsTopic, nil
		},
		Marshaler: Marshaler,
	})
}

var Marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}
