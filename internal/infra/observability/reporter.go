package observability

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bryanwahyu/nog/internal/domain/analysis"
)

// Reporter logs analysis outcomes and persistence failures and feeds the
// Prometheus collectors.
type Reporter struct {
	Logger *zap.Logger
}

func NewReporter(logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{Logger: logger}
}

func (r *Reporter) AnalysisFinished(_ context.Context, kind analysis.Kind, attempts int, err error) {
	AnalysisAttempts.WithLabelValues(string(kind)).Observe(float64(attempts))
	outcome := "success"
	if err != nil {
		outcome = "canceled"
		var ae *analysis.AnalysisError
		if errors.As(err, &ae) {
			outcome = string(ae.Kind)
		}
		r.Logger.Warn("analysis failed",
			zap.String("kind", string(kind)),
			zap.Int("attempts", attempts),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
	AnalysesTotal.WithLabelValues(string(kind), outcome).Inc()
}

func (r *Reporter) PersistenceFailed(_ context.Context, userID string, err error) {
	PersistenceFailuresTotal.Inc()
	r.Logger.Warn("check not persisted",
		zap.String("user_id", userID),
		zap.Error(err),
	)
}
