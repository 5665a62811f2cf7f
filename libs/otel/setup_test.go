package otelx

import (
	"context"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "off")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")
	t.Setenv("DEPLOY_ENV", "staging")

	cfg := ConfigFromEnv("portal-service")
	if cfg.Enabled {
		t.Fatal("expected tracing to be disabled")
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Fatalf("unexpected endpoint %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("out of range ratio should fall back to 1, got %v", cfg.SampleRatio)
	}
	if cfg.Environment != "staging" || cfg.ServiceName != "portal-service" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "portal-service"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
