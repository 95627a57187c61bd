package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestTelemetrySetup(t *testing.T) {
	tel, err := Setup("test-service")
	if err != nil {
		t.Fatalf("Failed to setup telemetry: %v", err)
	}

	if otel.GetTracerProvider() == nil {
		t.Error("Tracer provider not set")
	}
	if otel.GetMeterProvider() == nil {
		t.Error("Meter provider not set")
	}

	tracer := GetTracer("test-tracer")
	if tracer == nil {
		t.Error("Failed to get tracer")
	}

	meter := GetMeter("test-meter")
	if meter == nil {
		t.Error("Failed to get meter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestMetricsHolderSingleton(t *testing.T) {
	a := GetGlobalMetrics()
	b := GetGlobalMetrics()
	if a != b {
		t.Error("GetGlobalMetrics returned different instances")
	}

	a.SetJournalSize(42)
	a.mu.RLock()
	got := a.journalSize
	a.mu.RUnlock()
	if got != 42 {
		t.Errorf("journal size = %d, want 42", got)
	}
}
