package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/verustcode/ctreport/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/verustcode/ctreport"
)

// Metrics holds all application metrics
type Metrics struct {
	NodesLoaded      metric.Int64Counter
	FragmentsWritten metric.Int64Counter
	HostsRendered    metric.Int64Counter
	AdvisoryLookups  metric.Int64Counter
	StageDuration    metric.Float64Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary.
// Instruments are created against the global meter provider, which delegates
// to the SDK provider once New has installed it.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	var err error

	m.NodesLoaded, err = meter.Int64Counter(
		"ctreport_nodes_loaded_total",
		metric.WithDescription("Number of notebook nodes loaded from the store"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, err
	}

	m.FragmentsWritten, err = meter.Int64Counter(
		"ctreport_fragments_written_total",
		metric.WithDescription("Number of embedded images and code boxes placed in the document"),
		metric.WithUnit("{fragment}"),
	)
	if err != nil {
		return nil, err
	}

	m.HostsRendered, err = meter.Int64Counter(
		"ctreport_hosts_rendered_total",
		metric.WithDescription("Number of host sections rendered, by mode"),
		metric.WithUnit("{host}"),
	)
	if err != nil {
		return nil, err
	}

	m.AdvisoryLookups, err = meter.Int64Counter(
		"ctreport_advisory_lookups_total",
		metric.WithDescription("Number of advisory lookups, by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram(
		"ctreport_stage_duration_seconds",
		metric.WithDescription("Duration of report pipeline stages in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordNodesLoaded adds n loaded nodes
func (m *Metrics) RecordNodesLoaded(ctx context.Context, n int) {
	if m.NodesLoaded == nil {
		return
	}
	m.NodesLoaded.Add(ctx, int64(n))
}

// RecordFragment records one embedded fragment of the given kind
func (m *Metrics) RecordFragment(ctx context.Context, kind string) {
	if m.FragmentsWritten == nil {
		return
	}
	m.FragmentsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordHost records a rendered host section
func (m *Metrics) RecordHost(ctx context.Context, mode string) {
	if m.HostsRendered == nil {
		return
	}
	m.HostsRendered.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordAdvisoryLookup records an advisory lookup outcome
func (m *Metrics) RecordAdvisoryLookup(ctx context.Context, cached, success bool) {
	if m.AdvisoryLookups == nil {
		return
	}
	m.AdvisoryLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("cached", cached),
		attribute.Bool("success", success),
	))
}

// RecordStage records how long a pipeline stage took
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	if m.StageDuration == nil {
		return
	}
	m.StageDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", stage)))
}
