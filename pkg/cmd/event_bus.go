package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowgraph/pkg/channels/gochannel"
	"github.com/dukex/flowgraph/pkg/channels/kafka"
	"github.com/dukex/flowgraph/pkg/eventbus"
)

// NewEventBus builds the lifecycle event bus for provider: "gochannel" (default) or "kafka".
func NewEventBus(logger *slog.Logger, provider string, brokers []string) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, brokers, "flowgraph")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
