package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"coursely/internal/eventbus"
	"coursely/pkg/logger"
)

// RelayConfig configures the Kafka mirror of the registration event stream.
type RelayConfig struct {
	Brokers  []string
	Topic    string
	RetryMax int
}

// DefaultRelayConfig returns the default relay configuration.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Topic:    "registration-events",
		RetryMax: 3,
	}
}

// Relay mirrors every bus event to a Kafka topic, keyed by course ID so one
// course's events stay ordered within a partition. Delivery is best effort;
// the in-process bus remains the source of truth for live subscribers.
type Relay struct {
	producer sarama.SyncProducer
	config   RelayConfig
	bus      *eventbus.Bus
	log      *logger.Logger
}

// NewRelay connects a producer. An empty broker list returns (nil, nil):
// the relay is simply disabled.
func NewRelay(cfg RelayConfig, bus *eventbus.Bus, log *logger.Logger) (*Relay, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultRelayConfig().Topic
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &Relay{
		producer: producer,
		config:   cfg,
		bus:      bus,
		log:      log,
	}, nil
}

// Run consumes the bus firehose until the context is cancelled. Intended to
// run in its own goroutine.
func (r *Relay) Run(ctx context.Context) {
	sub := r.bus.SubscribeAll()
	defer sub.Cancel()

	r.log.Info("kafka relay started", "topic", r.config.Topic, "brokers", r.config.Brokers)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("kafka relay stopped")
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := r.forward(ev); err != nil {
				r.log.Error("failed to relay event",
					"type", string(ev.Type),
					"course_id", ev.CourseID,
					"error", err.Error(),
				)
			}
		}
	}
}

func (r *Relay) forward(ev eventbus.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: r.config.Topic,
		Key:   sarama.StringEncoder(ev.CourseID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
			{Key: []byte("course_id"), Value: []byte(ev.CourseID)},
			{Key: []byte("produced_at"), Value: []byte(ev.Timestamp.Format(time.RFC3339))},
		},
		Timestamp: ev.Timestamp,
	}

	_, _, err = r.producer.SendMessage(message)
	return err
}

// Close shuts down the producer.
func (r *Relay) Close() error {
	if r == nil || r.producer == nil {
		return nil
	}
	if err := r.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
