package commands

import (
	"context"
	"log/slog"

	"github.com/allisson/secretsgroup/internal/metrics"
)

// MetricsPusher is the part of metrics.Provider used to export command metrics.
type MetricsPusher interface {
	Push(ctx context.Context, url, job string, grouping map[string]string) error
}

var _ MetricsPusher = (*metrics.Provider)(nil)

// PushMetrics sends the metrics recorded by a command to a Prometheus Pushgateway,
// grouped by secrets group. A failed push is logged and not returned, the command itself
// already succeeded.
func PushMetrics(
	ctx context.Context,
	pusher MetricsPusher,
	logger *slog.Logger,
	url, namespace, region, name string,
) {
	grouping := map[string]string{"region": region, "group": name}
	if err := pusher.Push(ctx, url, namespace, grouping); err != nil {
		logger.Warn("failed to push metrics", slog.String("url", url), slog.Any("error", err))
		return
	}
	logger.Debug("metrics pushed", slog.String("url", url))
}
