package bus

import (
	"strings"
	"time"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// Config selects and configures a bus backend.
type Config struct {
	// Type is the bus backend: "none", "memory" or "kafka".
	Type string

	// KafkaBrokers is a comma-separated broker list for the kafka backend.
	KafkaBrokers string

	// KafkaConsumerGroup overrides the default consumer group.
	KafkaConsumerGroup string

	// Timeout is the request timeout for remote backends.
	Timeout time.Duration
}

// New creates a bus from config. Type "none" (or empty) returns nil:
// progress events are simply not published.
func New(cfg Config) (Bus, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryBus(), nil
	case "kafka":
		return NewKafkaBus(KafkaConfig{
			Brokers:       splitBrokers(cfg.KafkaBrokers),
			ConsumerGroup: cfg.KafkaConsumerGroup,
			Timeout:       cfg.Timeout,
		})
	default:
		return nil, errors.ValidationError("unknown bus type: " + cfg.Type)
	}
}

func splitBrokers(brokers string) []string {
	if brokers == "" {
		return nil
	}
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
