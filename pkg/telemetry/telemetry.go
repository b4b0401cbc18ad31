// Package telemetry provides OpenTelemetry integration for report runs.
// Traces can be shipped to an OTLP collector; metrics are collected through
// the Prometheus exporter and written once to a textfile when the run ends,
// which suits a short-lived command better than a scrape endpoint.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.uber.org/zap"

	"github.com/verustcode/ctreport/consts"
	"github.com/verustcode/ctreport/pkg/logger"
)

const defaultContextTimeout = 10 * time.Second

// Config holds the telemetry configuration
type Config struct {
	// Enabled enables/disables telemetry
	Enabled bool `yaml:"enabled"`
	// ServiceName is the name of the service for telemetry
	ServiceName string `yaml:"service_name"`
	// OTLP configuration for trace export
	OTLP OTLPConfig `yaml:"otlp"`
	// MetricsFile receives the Prometheus text exposition on shutdown (empty disables)
	MetricsFile string `yaml:"metrics_file"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	// Enabled enables OTLP trace export
	Enabled bool `yaml:"enabled"`
	// Endpoint is the OTLP collector endpoint (e.g., "localhost:4317")
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS for the connection
	Insecure bool `yaml:"insecure"`
}

// Telemetry manages OpenTelemetry providers and exporters
type Telemetry struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
}

// New creates a new Telemetry instance with the given configuration
func New(cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		logger.Debug("Telemetry is disabled")
		return &Telemetry{config: cfg}, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = consts.ServiceName
	}

	t := &Telemetry{config: cfg}

	// resource.New avoids schema URL conflicts between semconv versions
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(consts.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := t.initTracerProvider(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	if err := t.initMeterProvider(res); err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry initialized",
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("otlp_enabled", cfg.OTLP.Enabled),
		zap.String("metrics_file", cfg.MetricsFile),
	)

	return t, nil
}

func (t *Telemetry) initTracerProvider(res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if t.config.OTLP.Enabled && t.config.OTLP.Endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), defaultContextTimeout)
		defer cancel()

		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(t.config.OTLP.Endpoint),
		}
		if t.config.OTLP.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}

		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("OTLP trace exporter initialized", zap.String("endpoint", t.config.OTLP.Endpoint))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	t.tracerProvider = tp
	return nil
}

// initMeterProvider registers the Prometheus exporter on a private registry
// so the textfile only carries this run's instruments.
func (t *Telemetry) initMeterProvider(res *resource.Resource) error {
	t.registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.registry))
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)
	t.meterProvider = mp
	return nil
}

// WriteMetrics writes the current metric values in Prometheus text format.
func (t *Telemetry) WriteMetrics(path string) error {
	if t.registry == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, t.registry)
}

// Shutdown flushes metrics and spans and stops all providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.config.Enabled {
		return nil
	}

	logger.Debug("Shutting down telemetry")

	// Metrics must be gathered before the meter provider stops its reader
	if t.config.MetricsFile != "" {
		if err := t.WriteMetrics(t.config.MetricsFile); err != nil {
			logger.Error("Failed to write metrics file", zap.Error(err))
		}
	}

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown meter provider", zap.Error(err))
		}
	}

	return nil
}

// IsEnabled returns whether telemetry is enabled
func (t *Telemetry) IsEnabled() bool {
	return t.config.Enabled
}
