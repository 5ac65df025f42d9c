package searchapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// observer provides logging and metrics for backend calls.
type observer struct {
	logger *zap.Logger
}

func newObserver(logger *zap.Logger) *observer {
	return &observer{logger: logger}
}

func (o *observer) observe(ctx context.Context, op string, start time.Time, results int, err error) {
	dur := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.BackendRequestsTotal.WithLabelValues(op, status).Inc()
	metrics.BackendRequestDuration.WithLabelValues(op).Observe(dur.Seconds())

	l := logpkg.FromContext(ctx, o.logger)
	if err != nil {
		l.Warn("backend request failed",
			zap.String("op", op),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	l.Debug("backend request completed",
		zap.String("op", op),
		zap.Duration("duration", dur),
		zap.Int("results", results),
	)
}
