package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/akosykh/vpngw/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VPN.Binary != "piactl" {
		t.Errorf("vpn binary = %q, want piactl", cfg.VPN.Binary)
	}
	if cfg.Watchdog.PollIntervalDuration() != 5*time.Second {
		t.Errorf("poll interval = %v, want 5s", cfg.Watchdog.PollIntervalDuration())
	}
	if cfg.DNS.Fallback != "1.1.1.1" {
		t.Errorf("dns fallback = %q", cfg.DNS.Fallback)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := config.Defaults()
	cfg.Network.EgressInterface = "eth0"
	cfg.VPN.CredentialsFile = "/etc/vpngw/credentials"
	cfg.Watchdog.PollInterval = "10s"

	if err := config.SaveFile(path, &cfg); err != nil {
		t.Fatal(err)
	}

	got, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Network.EgressInterface != "eth0" {
		t.Errorf("egress = %q, want eth0", got.Network.EgressInterface)
	}
	if got.Watchdog.PollIntervalDuration() != 10*time.Second {
		t.Errorf("poll interval = %v, want 10s", got.Watchdog.PollIntervalDuration())
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "network:\n  tunnel_pattern: \"^vpn\"\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Network.TunnelPattern != "^vpn" {
		t.Errorf("tunnel pattern = %q", cfg.Network.TunnelPattern)
	}
	if cfg.VPN.Binary != "piactl" {
		t.Errorf("vpn binary = %q, want default piactl", cfg.VPN.Binary)
	}
}

func TestDurationFallbacks(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 2 * time.Second},
		{"garbage", 2 * time.Second},
		{"-3s", 2 * time.Second},
		{"500ms", 500 * time.Millisecond},
	}
	for _, tt := range tests {
		v := config.VPNConfig{ConnectPoll: tt.raw}
		if got := v.ConnectPollDuration(); got != tt.want {
			t.Errorf("ConnectPollDuration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
