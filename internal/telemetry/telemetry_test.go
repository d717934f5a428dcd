package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector.observability:4317")
	t.Setenv("OTEL_SERVICE_NAME", "")

	cfg := GetConfigFromEnv()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector.observability:4317", cfg.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.InDelta(t, 1.0, cfg.SampleRatio, 1e-9)
}

func TestGetConfigFromEnvDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := GetConfigFromEnv()

	assert.False(t, cfg.Enabled)
}

func TestGetConfigFromEnvServiceNameOverride(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SERVICE_NAME", "mix-service-staging")

	cfg := GetConfigFromEnv()

	assert.Equal(t, "mix-service-staging", cfg.ServiceName)
}
