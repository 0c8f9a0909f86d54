package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
environment: test
server:
  port: 8080
  shutdown_timeout: 5s
feed:
  websocket_url: wss://stream.example.com/prices
  snapshot_url: https://api.example.com/v3
  underlyings: [bitcoin, ethereum]
  reconnect_delay: 1500ms
detector:
  threshold: 10
  hysteresis_window: 2
  throttle_interval: 1s
scheduler:
  capacity: 5
  stagger: 32ms
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Environment != "test" {
		t.Errorf("environment = %q", c.Environment)
	}
	if c.Feed.ReconnectDelay != 1500*time.Millisecond {
		t.Errorf("reconnect_delay = %v", c.Feed.ReconnectDelay)
	}
	if c.Detector.Threshold != 10 || c.Detector.HysteresisWindow != 2 {
		t.Errorf("detector = %+v", c.Detector)
	}
	if c.Scheduler.Capacity != 5 || c.Scheduler.Stagger != 32*time.Millisecond {
		t.Errorf("scheduler = %+v", c.Scheduler)
	}
}

func TestLoadRejectsMissingFeedURL(t *testing.T) {
	body := `
environment: test
feed:
  underlyings: [bitcoin]
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected error for missing feed URLs")
	}
}

func TestLoadAllowsMockWithoutURLs(t *testing.T) {
	body := `
environment: test
feed:
  use_mock: true
  underlyings: [bitcoin, ethereum]
`
	if _, err := Load(writeConfig(t, body)); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadRejectsWideHysteresis(t *testing.T) {
	body := validYAML + `
`
	c, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Detector.HysteresisWindow = c.Detector.Threshold
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when hysteresis window reaches threshold")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	body := validYAML + `
alerts:
  kafka:
    enabled: true
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected error for kafka enabled without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "k-123")
	t.Setenv("UNDERLYINGS", "bitcoin")
	t.Setenv("USE_MOCK_FEED", "true")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if c.Feed.APIKey != "k-123" {
		t.Errorf("api key = %q", c.Feed.APIKey)
	}
	if len(c.Feed.Underlyings) != 1 || c.Feed.Underlyings[0] != "bitcoin" {
		t.Errorf("underlyings = %v", c.Feed.Underlyings)
	}
	if !c.Feed.UseMock {
		t.Error("use_mock not overridden")
	}
}
