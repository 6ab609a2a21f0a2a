package events

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
	"go.uber.org/zap"
)

// AlertProducer publishes high-risk assessments to the compliance alert
// topic so downstream case-management systems can pick them up.
type AlertProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewAlertProducer creates a Kafka producer for fraud alerts.
func NewAlertProducer(cfg config.KafkaConfig, logger *zap.Logger) (*AlertProducer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Net.MaxOpenRequests = 1
	saramaCfg.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert producer: %w", err)
	}

	return &AlertProducer{
		producer: producer,
		topic:    cfg.AlertTopic,
		logger:   logger,
	}, nil
}

// PublishAssessment sends one assessment to the alert topic, keyed by
// assessment ID so replays land on the same partition.
func (p *AlertProducer) PublishAssessment(assessment *domain.RiskAssessment) error {
	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(assessment.AssessmentID.String()),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Debug("Published fraud alert",
		zap.String("assessment_id", assessment.AssessmentID.String()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

// Close shuts the underlying producer down.
func (p *AlertProducer) Close() error {
	return p.producer.Close()
}
