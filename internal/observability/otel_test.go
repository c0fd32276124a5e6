package observability

import (
	"context"
	"testing"

	"flowdesk/internal/config"
)

func TestSetupTracingDisabled(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Monitoring.Tracing.Enabled = false

	shutdown, err := SetupTracing(context.Background(), cfg)
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://collector:4317", "collector:4317"},
		{"https://collector:4317", "collector:4317"},
		{"collector:4317", "collector:4317"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := endpointHost(tt.in); got != tt.want {
			t.Errorf("endpointHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
