package telemetry

import (
	"context"
	"testing"
)

// TestGetMetrics tests the GetMetrics function
func TestGetMetrics(t *testing.T) {
	metrics := GetMetrics()
	if metrics == nil {
		t.Fatal("GetMetrics() returned nil")
	}

	if metrics != GetMetrics() {
		t.Error("GetMetrics() returned different instances on subsequent calls")
	}
}

// TestMetricsRecorders tests that every recorder accepts input without panicking
func TestMetricsRecorders(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	metrics.RecordNodesLoaded(ctx, 42)
	metrics.RecordFragment(ctx, "image")
	metrics.RecordFragment(ctx, "codebox")
	metrics.RecordHost(ctx, "structured")
	metrics.RecordAdvisoryLookup(ctx, false, true)
	metrics.RecordStage(ctx, "assemble", 0.25)
}

// TestEmptyMetrics tests that a zero Metrics value is safe
func TestEmptyMetrics(t *testing.T) {
	m := &Metrics{}
	ctx := context.Background()

	m.RecordNodesLoaded(ctx, 1)
	m.RecordFragment(ctx, "image")
	m.RecordHost(ctx, "simple")
	m.RecordAdvisoryLookup(ctx, true, true)
	m.RecordStage(ctx, "load", 1)
}
