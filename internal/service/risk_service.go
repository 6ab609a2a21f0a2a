package service

import (
	"context"
	"time"

	"github.com/banking/fraud-detection/internal/domain"
	"github.com/banking/fraud-detection/internal/events"
	"github.com/banking/fraud-detection/internal/repository/elasticsearch"
	"github.com/banking/fraud-detection/internal/scoring"
	"go.uber.org/zap"
)

// RiskService is the application-facing wrapper around the scoring core.
// It times the analysis, wraps the result as an assessment record, and
// fans it out to the best-effort sinks: Elasticsearch for analyst search
// and Kafka for High/Critical alerts. Both sinks are optional; the scoring
// path never waits on them.
type RiskService struct {
	combiner *scoring.Combiner
	esRepo   *elasticsearch.AssessmentRepository
	producer *events.AlertProducer
	logger   *zap.Logger
}

// NewRiskService wires the service. esRepo and producer may be nil when
// the corresponding sink is disabled.
func NewRiskService(
	combiner *scoring.Combiner,
	esRepo *elasticsearch.AssessmentRepository,
	producer *events.AlertProducer,
	logger *zap.Logger,
) *RiskService {
	return &RiskService{
		combiner: combiner,
		esRepo:   esRepo,
		producer: producer,
		logger:   logger,
	}
}

// Train fits the fiat anomaly model on historical legs.
func (s *RiskService) Train(legs []domain.FiatLeg) {
	s.combiner.Train(legs)
}

// Analyze scores one event and returns the assessment record. The only
// error is scoring.ErrInvalidEvent.
func (s *RiskService) Analyze(ctx context.Context, event domain.RiskEvent) (*domain.RiskAssessment, error) {
	start := time.Now()

	result, err := s.combiner.Analyze(ctx, event)
	if err != nil {
		return nil, err
	}

	assessment := domain.NewRiskAssessment(event, result, time.Since(start))

	s.asyncIndex(assessment)

	if result.RiskLevel == domain.RiskLevelHigh || result.RiskLevel == domain.RiskLevelCritical {
		s.asyncPublish(assessment)
	}

	return assessment, nil
}

// Search queries indexed assessments.
func (s *RiskService) Search(ctx context.Context, query string, from, size int) ([]*domain.RiskAssessment, int64, error) {
	return s.esRepo.SearchAssessments(ctx, query, from, size)
}

// SearchEnabled reports whether an Elasticsearch sink is configured.
func (s *RiskService) SearchEnabled() bool {
	return s.esRepo != nil
}

// asyncIndex handles background indexing with panic protection
func (s *RiskService) asyncIndex(assessment *domain.RiskAssessment) {
	if s.esRepo == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async index", zap.Any("panic", r))
			}
		}()

		// Use a detached context for async operations
		asyncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.esRepo.IndexAssessment(asyncCtx, assessment); err != nil {
			s.logger.Error("Failed to index assessment",
				zap.String("assessment_id", assessment.AssessmentID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *RiskService) asyncPublish(assessment *domain.RiskAssessment) {
	if s.producer == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async publish", zap.Any("panic", r))
			}
		}()

		if err := s.producer.PublishAssessment(assessment); err != nil {
			s.logger.Error("Failed to publish fraud alert",
				zap.String("assessment_id", assessment.AssessmentID.String()),
				zap.Error(err),
			)
		}
	}()
}
