package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/models"
)

func baseConfig() *config.Config {
	return &config.Config{
		InstanceID:        "test",
		Port:              8000,
		DefaultCategory:   "paper",
		HSVLower:          [3]int{100, 150, 50},
		HSVUpper:          [3]int{140, 255, 255},
		MinRegionArea:     500,
		StrokeColor:       "#0000FF",
		StrokeThickness:   2,
		OutputJPEGQuality: 85,
		CaptureFPS:        15,
		ShutdownTimeout:   time.Second,
	}
}

func TestNewServiceContainerDefaults(t *testing.T) {
	sc, err := NewServiceContainer(baseConfig())
	if err != nil {
		t.Fatalf("NewServiceContainer: %v", err)
	}
	defer sc.Shutdown(context.Background())

	if sc.Messaging != nil || sc.Capture != nil || sc.Health != nil {
		t.Error("optional services should be disabled by default")
	}
	if sc.Events.Enabled() {
		t.Error("events should be disabled without NATS")
	}

	got := sc.Classify("Banana peel")
	if got.Category != models.CategoryFood || got.Keyword != "peel" {
		t.Errorf("Classify: got %+v", got)
	}
	if got := sc.Classify(""); got.Category != models.CategoryPaper || got.Matched {
		t.Errorf("empty input: got %+v", got)
	}
}

func TestNewServiceContainerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"unknown default category", func(c *config.Config) { c.DefaultCategory = "glass" }, "CLASSIFIER_DEFAULT_CATEGORY"},
		{"bad stroke color", func(c *config.Config) { c.StrokeColor = "blue-ish" }, "stroke"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(cfg)
			_, err := NewServiceContainer(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tc.wantErr)) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestOptionalServicesDegrade(t *testing.T) {
	cfg := baseConfig()
	cfg.NatsEnabled = true
	cfg.NatsURL = "nats://127.0.0.1:1"
	cfg.NatsConnectTimeout = 100 * time.Millisecond
	cfg.CameraSource = "definitely-not-a-camera"
	cfg.CameraStreamID = "cam"
	cfg.ReconnectInterval = time.Hour

	sc, err := NewServiceContainer(cfg)
	if err != nil {
		t.Fatalf("NewServiceContainer: %v", err)
	}
	if sc.Messaging != nil {
		t.Error("messaging should be nil when NATS is unreachable")
	}
	if sc.Capture == nil {
		t.Fatal("capture should be configured")
	}

	sc.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sc.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
