package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GerganaNoneva/beautysalon/cmd/mainconfig"
	"github.com/GerganaNoneva/beautysalon/internal/app/bootstrap"
	appconfig "github.com/GerganaNoneva/beautysalon/internal/config"
	"github.com/GerganaNoneva/beautysalon/internal/events"
	"github.com/GerganaNoneva/beautysalon/internal/observability/metrics"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

// setupSchedulingMetrics registers the scheduling collectors on a dedicated
// registry and returns the /metrics handler for it.
func setupSchedulingMetrics() (http.Handler, *metrics.SchedulingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewSchedulingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// setupEventTransport loads AWS config only when a queue is configured.
func setupEventTransport(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (events.Publisher, error) {
	var awsCfg *aws.Config
	if strings.TrimSpace(cfg.BookingEventsQueueURL) != "" {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		awsCfg = &loaded
	}
	return bootstrap.BuildEventTransport(awsCfg, cfg, logger), nil
}

// setupDeliverer builds the outbox deliverer with the configured batch size and
// poll interval.
func setupDeliverer(outbox *events.OutboxStore, transport events.Publisher, cfg *appconfig.Config, logger *logging.Logger) *events.Deliverer {
	return events.NewDeliverer(outbox, transport, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxInterval)
}
