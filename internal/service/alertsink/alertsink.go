// Package alertsink fans fired alerts out to Kafka, keyed by symbol so
// per-instrument ordering is preserved.
package alertsink

import (
	"context"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	"DipWatch/pkg/kafka"
	applogger "DipWatch/pkg/logger"
)

// KafkaSink publishes activated alerts to a Kafka topic.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	log      *applogger.Logger
}

// NewKafkaSink creates an alert sink over an existing producer.
func NewKafkaSink(producer *kafka.Producer, topic string, log *applogger.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, log: log}
}

var _ drepo.AlertPublisher = (*KafkaSink)(nil)

// Publish writes the alert keyed by symbol.
func (s *KafkaSink) Publish(ctx context.Context, alert *models.DipAlert) error {
	if err := s.producer.Publish(ctx, s.topic, []byte(alert.Symbol), alert); err != nil {
		return err
	}
	s.log.Debug("alert published",
		applogger.String("symbol", string(alert.Symbol)),
		applogger.String("alertId", alert.AlertID))
	return nil
}

// PublishMessage implements logger.Publisher so the same producer can
// carry aggregated diagnostics batches.
func (s *KafkaSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

// Close closes the underlying producer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
