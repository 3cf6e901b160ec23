package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"bankcrew/pkg/core"
)

func TestInit(t *testing.T) {
	shutdown, err := Init("bankcrew-test", "v0.0.1")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitWithConfigUnknownExporter(t *testing.T) {
	_, err := InitWithConfig("bankcrew-test", "v0.0.1", Config{Exporter: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInitWithConfigOTLPRequiresEndpoint(t *testing.T) {
	_, err := InitWithConfig("bankcrew-test", "v0.0.1", Config{Exporter: "otlp"})
	if err == nil {
		t.Fatal("expected error for missing otlp endpoint")
	}
}

func TestConfigureSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")
	logger.Info("crew.test", "task", "analysis_task")

	out := buf.String()
	if !strings.Contains(out, "crew.test") {
		t.Errorf("expected log output to contain message, got %q", out)
	}
	if !strings.Contains(out, "analysis_task") {
		t.Errorf("expected log output to contain attribute, got %q", out)
	}

	if !strings.Contains(out, `"service":"bankcrew"`) {
		t.Errorf("expected log output to carry the service name, got %q", out)
	}

	buf.Reset()
	logger = ConfigureSlog(&buf, "warn", "text")
	logger.Info("crew.suppressed")
	if buf.Len() != 0 {
		t.Errorf("expected info log suppressed at warn level, got %q", buf.String())
	}
}

func TestConfigureSlogRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")

	ctx := core.WithRunID(context.Background(), "run-42")
	logger.InfoContext(ctx, "crew.run.start")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run-42"`) {
		t.Errorf("expected log output to carry the run id, got %q", out)
	}

	buf.Reset()
	logger.Info("crew.no.run")
	if strings.Contains(buf.String(), "run_id") {
		t.Errorf("expected no run id without one in context, got %q", buf.String())
	}
}
