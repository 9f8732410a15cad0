package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: orderqueue
backend:
  base_url: http://backend
workers:
  - name: order_control
    queue_name: order_control
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AutoAdvance.TickInterval != time.Second {
		t.Errorf("tick_interval = %v, want 1s", cfg.AutoAdvance.TickInterval)
	}
	if cfg.AutoAdvance.PollInterval != 5*time.Second {
		t.Errorf("poll_interval = %v, want 5s", cfg.AutoAdvance.PollInterval)
	}
	if !cfg.AutoAdvance.Enabled {
		t.Error("autoadvance should be enabled by default")
	}
	if cfg.Backend.StatusPath != "/api/orders/%s/status/" {
		t.Errorf("status_path = %q", cfg.Backend.StatusPath)
	}
	if got := cfg.Workers[0].Processor.Threads; got != 1 {
		t.Errorf("processor threads = %d, want 1", got)
	}
	if got := cfg.Workers[0].Subscriber.TTR; got != 30*time.Second {
		t.Errorf("subscriber ttr = %v, want 30s", got)
	}

	// workers 存在但缺少 lmstfy.host
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing lmstfy.host")
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
app:
  name: orderqueue
backend:
  base_url: http://backend
  timeout: 750ms
autoadvance:
  tick_interval: 500ms
  poll_interval: 2s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Backend.Timeout != 750*time.Millisecond {
		t.Errorf("timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.AutoAdvance.TickInterval != 500*time.Millisecond {
		t.Errorf("tick_interval = %v", cfg.AutoAdvance.TickInterval)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:         AppConfig{Name: "orderqueue"},
			Backend:     BackendConfig{BaseURL: "http://backend", StatusPath: "/o/%s/status/", AutoFlowPath: "/o/%s/auto-flow/"},
			AutoAdvance: AutoAdvanceConfig{TickInterval: time.Second, PollInterval: time.Second},
		}
	}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing name", func(c *Config) { c.App.Name = "" }, true},
		{"missing base url", func(c *Config) { c.Backend.BaseURL = "" }, true},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "backend:8000" }, true},
		{"status path without id", func(c *Config) { c.Backend.StatusPath = "/status" }, true},
		{"zero tick", func(c *Config) { c.AutoAdvance.TickInterval = 0 }, true},
		{"worker without queue", func(c *Config) {
			c.Lmstfy.Host = "127.0.0.1"
			c.Workers = []WorkerConfig{{Name: "w"}}
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
