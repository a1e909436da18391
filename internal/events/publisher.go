// Package events hands validated and rejected entries to the rendering pipeline.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/metrics"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/validation"
)

const (
	EventValidated = "validated"
	EventRejected  = "rejected"
)

// EntryEvent is the payload published for every checked document
type EntryEvent struct {
	Type        string                  `json:"type"`
	Kind        models.Kind             `json:"kind"`
	Path        string                  `json:"path"`
	Slug        string                  `json:"slug"`
	Hash        string                  `json:"hash"`
	Frontmatter map[string]interface{}  `json:"frontmatter,omitempty"`
	Errors      []validation.FieldError `json:"errors,omitempty"`
	OccurredAt  time.Time               `json:"occurred_at"`
}

// Publisher is implemented by the Kafka publisher; services depend on it so
// tests can record events instead.
type Publisher interface {
	PublishValidated(ctx context.Context, event *EntryEvent) error
	PublishRejected(ctx context.Context, event *EntryEvent) error
	Close() error
}

// KafkaPublisher publishes entry events to separate Kafka topics.
type KafkaPublisher struct {
	writerValidated *kafka.Writer
	writerRejected  *kafka.Writer
	topicValidated  string
	topicRejected   string
	enabled         bool
	metrics         *metrics.Metrics
	log             zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// New creates a Kafka publisher. Disabled or broker-less configs run in log-only mode.
func New(cfg *config.EventsConfig, m *metrics.Metrics, log zerolog.Logger) *KafkaPublisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	log = log.With().Str("component", "events").Logger()

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &KafkaPublisher{metrics: m, log: log}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &KafkaPublisher{
			topicValidated: cfg.ValidatedTopic,
			topicRejected:  cfg.RejectedTopic,
			metrics:        m,
			log:            log,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicValidated", cfg.ValidatedTopic).
		Str("topicRejected", cfg.RejectedTopic).
		Msg("Kafka publisher initialized")

	return &KafkaPublisher{
		writerValidated: newWriter(cfg.ValidatedTopic),
		writerRejected:  newWriter(cfg.RejectedTopic),
		topicValidated:  cfg.ValidatedTopic,
		topicRejected:   cfg.RejectedTopic,
		enabled:         true,
		metrics:         m,
		log:             log,
	}
}

// PublishValidated publishes an accepted entry to the validated topic.
func (p *KafkaPublisher) PublishValidated(ctx context.Context, event *EntryEvent) error {
	event.Type = EventValidated
	return p.publish(ctx, p.writerValidated, p.topicValidated, event)
}

// PublishRejected publishes a rejected entry to the rejected topic.
func (p *KafkaPublisher) PublishRejected(ctx context.Context, event *EntryEvent) error {
	event.Type = EventRejected
	return p.publish(ctx, p.writerRejected, p.topicRejected, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, writer *kafka.Writer, topic string, event *EntryEvent) error {
	start := time.Now()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = start.UTC()
	}
	key := string(event.Kind) + "/" + event.Slug

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	p.log.Debug().
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.Type)},
			{Key: "collection", Value: []byte(event.Kind)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, event.Type, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, event.Type, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *KafkaPublisher) Close() error {
	var err error
	if p.writerValidated != nil {
		if e := p.writerValidated.Close(); e != nil {
			p.log.Error().Err(e).Msg("Error closing validated writer")
			err = e
		}
	}
	if p.writerRejected != nil {
		if e := p.writerRejected.Close(); e != nil {
			p.log.Error().Err(e).Msg("Error closing rejected writer")
			err = e
		}
	}
	return err
}
