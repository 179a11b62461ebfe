package bus

import (
	"fmt"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

// New creates a new event bus based on configuration.
// The channel bus serves single-process deployments; NATS lets an external
// scheduler publish warm-up triggers.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
