// Package events publishes transcript lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"live-transcription-service/internal/observability/logging"
	"live-transcription-service/internal/observability/metrics"
)

// Publisher writes transcript deltas and final transcripts to separate
// topics, keyed by session ID so one session's events stay ordered within a
// partition. When Kafka is disabled it degrades to log-only mode: publishes
// are logged and counted but nothing leaves the process.
type Publisher struct {
	writerDelta *kafka.Writer
	writerFinal *kafka.Writer
	principal   string
	topicDelta  string
	topicFinal  string
	enabled     bool
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers    []string
	TopicDelta string
	TopicFinal string
	Principal  string
	Enabled    bool
}

// New creates the publisher. A nil config, Enabled=false, or an empty broker
// list all select log-only mode.
func New(cfg *Config) *Publisher {
	p := &Publisher{
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("events"),
	}
	if cfg != nil {
		p.principal = cfg.Principal
		p.topicDelta = cfg.TopicDelta
		p.topicFinal = cfg.TopicFinal
	}

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		p.log.Info().Msg("kafka disabled, publisher running in log-only mode")
		return p
	}

	// Broker addresses behind cluster DNS can be slow to resolve right
	// after a rollout; give the dialer room.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	p.writerDelta = newWriter(cfg.Brokers, cfg.TopicDelta, transport)
	p.writerFinal = newWriter(cfg.Brokers, cfg.TopicFinal, transport)
	p.enabled = true

	p.log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicDelta", cfg.TopicDelta).
		Str("topicFinal", cfg.TopicFinal).
		Str("principal", cfg.Principal).
		Msg("kafka publisher ready")
	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishDelta publishes a transcript delta event, keyed by session ID.
func (p *Publisher) PublishDelta(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerDelta, p.topicDelta, "delta", key, event)
}

// PublishFinal publishes a final transcript event, keyed by session ID.
func (p *Publisher) PublishFinal(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerFinal, p.topicFinal, "final", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return err
	}

	p.log.Debug().
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	err = writer.WriteMessages(ctx, msg)
	p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Str("key", key).Msg("kafka write failed")
		return err
	}
	return nil
}

// Close closes both Kafka writers, returning the last error seen.
func (p *Publisher) Close() error {
	var err error
	for _, w := range []*kafka.Writer{p.writerDelta, p.writerFinal} {
		if w == nil {
			continue
		}
		if e := w.Close(); e != nil {
			p.log.Error().Err(e).Str("topic", w.Topic).Msg("error closing kafka writer")
			err = e
		}
	}
	return err
}
