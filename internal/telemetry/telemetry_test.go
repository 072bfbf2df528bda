package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// collector accepts OTLP/HTTP exports and returns its host:port
func collector(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      func(endpoint string) *Config
		wantSDKTrc  bool
		wantSDKMtr  bool
		errContains string
	}{
		{
			name:   "nil config yields no-op providers",
			config: func(string) *Config { return nil },
		},
		{
			name:   "disabled config yields no-op providers",
			config: func(string) *Config { return &Config{Enabled: false, Tracing: &TracingConfig{Enabled: true}} },
		},
		{
			name: "tracing only",
			config: func(endpoint string) *Config {
				return &Config{
					Enabled:  true,
					Endpoint: endpoint,
					Insecure: true,
					Tracing:  &TracingConfig{Enabled: true},
				}
			},
			wantSDKTrc: true,
		},
		{
			name: "metrics only",
			config: func(endpoint string) *Config {
				return &Config{
					Enabled:  true,
					Endpoint: endpoint,
					Insecure: true,
					Metrics:  &MetricsConfig{Enabled: true},
				}
			},
			wantSDKMtr: true,
		},
		{
			name: "tracing and metrics",
			config: func(endpoint string) *Config {
				return &Config{
					Enabled:  true,
					Endpoint: endpoint,
					Insecure: true,
					Tracing:  &TracingConfig{Enabled: true, Sampling: 0.5},
					Metrics:  &MetricsConfig{Enabled: true},
				}
			},
			wantSDKTrc: true,
			wantSDKMtr: true,
		},
		{
			name: "invalid sampling",
			config: func(string) *Config {
				return &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 2}}
			},
			errContains: "sampling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()

			tel, err := New(ctx, tt.config(collector(t)), "test")
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)

			if tt.wantSDKTrc {
				assert.IsType(t, &sdktrace.TracerProvider{}, tel.TracerProvider())
			} else {
				assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
			}
			if tt.wantSDKMtr {
				assert.IsType(t, &sdkmetric.MeterProvider{}, tel.MeterProvider())
			} else {
				assert.IsType(t, metricnoop.MeterProvider{}, tel.MeterProvider())
			}

			require.NoError(t, tel.Shutdown(ctx))
		})
	}
}

func TestTelemetry_ShutdownNoOp(t *testing.T) {
	t.Parallel()

	tel, err := New(t.Context(), nil, "test")
	require.NoError(t, err)

	require.NoError(t, tel.Shutdown(t.Context()))
	require.NoError(t, tel.Shutdown(t.Context()))
}
