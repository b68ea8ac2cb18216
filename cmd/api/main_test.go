package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/GerganaNoneva/beautysalon/internal/config"
	"github.com/GerganaNoneva/beautysalon/internal/events"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

func TestSetupSchedulingMetricsExposesMetrics(t *testing.T) {
	handler, metrics := setupSchedulingMetrics()
	if handler == nil || metrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	metrics.ObserveConflict("request")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "salon_scheduling_conflicts_total") {
		t.Fatalf("expected conflict counter to be exported")
	}
}

func TestSetupEventTransportWithoutQueueLogs(t *testing.T) {
	pub, err := setupEventTransport(context.Background(), &appconfig.Config{}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pub.(*events.LogPublisher); !ok {
		t.Fatalf("expected log publisher, got %T", pub)
	}
}

func TestSetupEventTransportSQSPath(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:             "eu-central-1",
		AWSAccessKeyID:        "test",
		AWSSecretAccessKey:    "test",
		AWSEndpointOverride:   "http://localhost:4566",
		BookingEventsQueueURL: "http://localhost:4566/000000000000/booking-events",
	}

	pub, err := setupEventTransport(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pub.(*events.SQSPublisher); !ok {
		t.Fatalf("expected SQS publisher, got %T", pub)
	}
}

func TestSetupDelivererWithoutOutboxReturnsImmediately(t *testing.T) {
	cfg := &appconfig.Config{OutboxBatchSize: 10, OutboxInterval: time.Millisecond}
	d := setupDeliverer(nil, events.NewLogPublisher(logging.New("error")), cfg, logging.New("error"))
	if d == nil {
		t.Fatalf("expected deliverer")
	}

	done := make(chan struct{})
	go func() {
		d.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("deliverer without an outbox store should not poll")
	}
}
