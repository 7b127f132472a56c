package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
)

// PrepService exposes the two preparation modes over one shared transform.
type PrepService struct {
	transformer *Transformer
	splitCfg    domain.SplitConfig
	logger      *slog.Logger
}

func NewPrepService(transformer *Transformer, splitCfg domain.SplitConfig, logger *slog.Logger) *PrepService {
	return &PrepService{
		transformer: transformer,
		splitCfg:    splitCfg,
		logger:      logger.With("service_component", "PrepService"),
	}
}

// PrepTraining transforms customers and splits them on churn into train, validate and test.
func (s *PrepService) PrepTraining(ctx context.Context, customers []domain.Customer) (domain.TrainingSplit, error) {
	prepared, err := s.transform(ctx, customers)
	if err != nil {
		return domain.TrainingSplit{}, err
	}

	start := time.Now()
	split, err := StratifiedSplit(prepared, ChurnLabel, s.splitCfg)
	stageDurationHist.WithLabelValues("split").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "Stratified split failed", "error", err)
		return domain.TrainingSplit{}, err
	}

	s.logger.InfoContext(ctx, "Prepared training data",
		"train_rows", len(split.Train),
		"validate_rows", len(split.Validate),
		"test_rows", len(split.Test),
		"seed", s.splitCfg.Seed,
	)
	return split, nil
}

// PrepPrediction transforms customers for scoring. Rows may have no churn value.
func (s *PrepService) PrepPrediction(ctx context.Context, customers []domain.Customer) ([]domain.PreparedCustomer, error) {
	prepared, err := s.transform(ctx, customers)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Prepared prediction data", "rows", len(prepared))
	return prepared, nil
}

func (s *PrepService) transform(ctx context.Context, customers []domain.Customer) ([]domain.PreparedCustomer, error) {
	start := time.Now()
	prepared, report, err := s.transformer.Transform(ctx, customers)
	stageDurationHist.WithLabelValues("transform").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	rowsDroppedCounter.WithLabelValues("zero_tenure").Add(float64(report.DroppedZeroTenure))
	for column, n := range report.Unmapped {
		unmappedValuesCounter.WithLabelValues(column).Add(float64(n))
	}
	s.logger.InfoContext(ctx, "Feature transform complete",
		"input_rows", report.InputRows,
		"dropped_zero_tenure", report.DroppedZeroTenure,
		"output_rows", report.OutputRows,
	)
	return prepared, nil
}
