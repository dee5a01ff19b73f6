// Package publisher contains the Kafka-backed implementations of the worker
// engines' outbound ports: notification publishing and dead-lettering.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/order-pipeline/internal/models"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour required by the
// Kafka publishers.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// ErrProducerNotInitialised exposes the sentinel error for callers and tests.
func ErrProducerNotInitialised() error {
	return errProducerNotInitialised
}

// NotificationPublisher emits notification envelopes to the downstream
// notification topic, keyed by order id.
type NotificationPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewNotificationPublisher constructs a NotificationPublisher instance.
func NewNotificationPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *NotificationPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &NotificationPublisher{
		producer: prod,
		topic:    topic,
		logger:   logger,
	}
}

// Notify writes the supplied envelope to Kafka synchronously.
func (p *NotificationPublisher) Notify(_ context.Context, env models.NotificationEnvelope) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal notification envelope: %w", err)
	}

	headers := map[string][]byte{
		"content-type": []byte("application/json"),
		"x-message-id": []byte(uuid.NewString()),
	}

	if err := p.producer.PublishSync(p.topic, []byte(env.OrderID), headers, payload); err != nil {
		return fmt.Errorf("kafka publisher: publish notification: %w", err)
	}
	return nil
}

// DeadLetterPublisher moves failed messages to the failure topic. The
// original payload travels unchanged as the message body so the recovery
// worker decodes the same order shape; failure metadata rides in headers.
type DeadLetterPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewDeadLetterPublisher constructs a DeadLetterPublisher instance.
func NewDeadLetterPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *DeadLetterPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &DeadLetterPublisher{
		producer: prod,
		topic:    topic,
		logger:   logger,
	}
}

// DeadLetter writes the original payload to the failure topic with the
// failure metadata attached as headers.
func (p *DeadLetterPublisher) DeadLetter(_ context.Context, key, payload []byte, meta models.DeadLetterMeta) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	if len(key) == 0 {
		key = []byte(meta.OrderID)
	}

	headers := map[string][]byte{
		"content-type":      []byte("application/json"),
		"x-failure-type":    []byte(meta.FailureType),
		"x-attempts":        []byte(strconv.Itoa(meta.Attempts)),
		"x-last-error":      []byte(meta.LastError),
		"x-first-failed-at": []byte(meta.FirstFailedAt.UTC().Format(time.RFC3339Nano)),
		"x-last-attempt-at": []byte(meta.LastAttemptAt.UTC().Format(time.RFC3339Nano)),
	}

	if err := p.producer.PublishSync(p.topic, key, headers, payload); err != nil {
		return fmt.Errorf("kafka publisher: publish dead letter: %w", err)
	}
	return nil
}
