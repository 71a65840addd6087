package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_EmptyEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "  ", "fiscus-api")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_InvalidEndpoint(t *testing.T) {
	_, err := Setup(context.Background(), "http://", "fiscus-api")
	assert.ErrorContains(t, err, "missing host")
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		in       string
		target   string
		insecure bool
	}{
		{"localhost:4317", "localhost:4317", true},
		{"http://collector:4317/v1/traces", "collector:4317", true},
		{"https://otel.example.com:4317", "otel.example.com:4317", false},
	}
	for _, c := range cases {
		target, insecure, err := parseEndpoint(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.target, target, c.in)
		assert.Equal(t, c.insecure, insecure, c.in)
	}
}

func TestSetup_InstallsProvider(t *testing.T) {
	// The gRPC exporter dials lazily, so no collector is needed here.
	shutdown, err := Setup(context.Background(), "localhost:4317", "fiscus-api")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
