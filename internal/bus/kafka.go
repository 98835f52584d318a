package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// KafkaBus is a Kafka-based event bus implementation for exporting
// evaluation lifecycle events to external consumers.
type KafkaBus struct {
	config   KafkaConfig
	producer sarama.SyncProducer
	consumer sarama.ConsumerGroup
	client   sarama.Client

	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool

	consumerWg   sync.WaitGroup
	consumerStop chan struct{}
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers       []string      // Kafka broker addresses
	ConsumerGroup string        // Consumer group ID
	ClientID      string        // Client identifier
	Version       string        // Kafka version (e.g., "2.8.0")
	Timeout       time.Duration // Request timeout (default: 30s)
}

// NewKafkaBus creates a new Kafka-based event bus.
func NewKafkaBus(cfg KafkaConfig) (*KafkaBus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.ValidationError("kafka brokers cannot be empty")
	}

	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "rank-eval-bus"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "rank-eval"
	}
	if cfg.Version == "" {
		cfg.Version = "2.8.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "invalid kafka version", err)
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = version
	kafkaConfig.ClientID = cfg.ClientID
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	kafkaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	kafkaConfig.Consumer.Return.Errors = true
	kafkaConfig.Net.DialTimeout = 10 * time.Second
	kafkaConfig.Net.ReadTimeout = 10 * time.Second
	kafkaConfig.Net.WriteTimeout = 10 * time.Second

	client, err := sarama.NewClient(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka client", err)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka producer", err)
	}

	consumer, err := sarama.NewConsumerGroupFromClient(cfg.ConsumerGroup, client)
	if err != nil {
		producer.Close()
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka consumer group", err)
	}

	return &KafkaBus{
		config:       cfg,
		producer:     producer,
		consumer:     consumer,
		client:       client,
		handlers:     make(map[string][]Handler),
		consumerStop: make(chan struct{}),
	}, nil
}

// Publish publishes an event to a Kafka topic.
func (b *KafkaBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to marshal event", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
		Key:   sarama.StringEncoder(event.ID), // Use event ID as partition key
	}

	_, _, err = b.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrap(errors.CodeUnavailable, "failed to publish to kafka", err)
	}

	return nil
}

// Subscribe registers a handler for events on a Kafka topic.
func (b *KafkaBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	isNewTopic := len(b.handlers[topic]) == 0
	b.handlers[topic] = append(b.handlers[topic], handler)

	if isNewTopic {
		b.consumerWg.Add(1)
		go b.consumeTopic(topic)
	}

	return nil
}

// consumeTopic runs a consumer group session for one topic until the
// bus is closed.
func (b *KafkaBus) consumeTopic(topic string) {
	defer b.consumerWg.Done()

	handler := &consumerGroupHandler{bus: b, topic: topic}

	for {
		select {
		case <-b.consumerStop:
			return
		default:
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-b.consumerStop
			cancel()
		}()

		if err := b.consumer.Consume(ctx, []string{topic}, handler); err != nil {
			cancel()
			select {
			case <-b.consumerStop:
				return
			case <-time.After(time.Second):
				// Rebalance or transient error, retry the session.
				continue
			}
		}
		cancel()
	}
}

// consumerGroupHandler dispatches consumed messages to topic handlers.
type consumerGroupHandler struct {
	bus   *KafkaBus
	topic string
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			session.MarkMessage(msg, "")
			continue
		}

		h.bus.mu.RLock()
		handlers := h.bus.handlers[h.topic]
		h.bus.mu.RUnlock()

		for _, handler := range handlers {
			_ = handler(session.Context(), event)
		}

		session.MarkMessage(msg, "")
	}
	return nil
}

// Close stops consumers and closes the Kafka clients.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.consumerStop)
	b.consumerWg.Wait()

	b.consumer.Close()
	b.producer.Close()
	return b.client.Close()
}
