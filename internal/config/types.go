package config

import "time"

// Config is the top-level application configuration.
type Config struct {
	Version int `yaml:"version"`

	VPN      VPNConfig      `yaml:"vpn"`
	Network  NetworkConfig  `yaml:"network"`
	DNS      DNSConfig      `yaml:"dns"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Daemon   DaemonConfig   `yaml:"daemon"`
}

// VPNConfig holds the VPN client CLI settings.
type VPNConfig struct {
	Binary          string `yaml:"binary"`           // client CLI, e.g. "piactl"
	CredentialsFile string `yaml:"credentials_file"` // passed verbatim to "<binary> login"
	ConnectPoll     string `yaml:"connect_poll"`     // connection-state poll interval
	ConnectTimeout  string `yaml:"connect_timeout"`  // give up waiting for "Connected" after this
}

// NetworkConfig holds interface detection settings.
type NetworkConfig struct {
	// TunnelPattern matches the names of tunnel interfaces the VPN client
	// may create (it renames the interface across reconnects).
	TunnelPattern string `yaml:"tunnel_pattern"`
	// EgressInterface pins the LAN-facing egress interface. Empty means
	// auto-detect from the default route.
	EgressInterface string `yaml:"egress_interface"`
	// LANNetwork optionally restricts forwarding to a source CIDR.
	LANNetwork string `yaml:"lan_network"`
}

// DNSConfig holds resolver settings.
type DNSConfig struct {
	// Fallback is written to /etc/resolv.conf whenever NAT rules are
	// reapplied, so LAN clients keep resolving if the tunnel DNS vanished.
	Fallback string `yaml:"fallback"`
}

// WatchdogConfig holds the interface-change watchdog settings.
type WatchdogConfig struct {
	PollInterval string `yaml:"poll_interval"`
	// WarnAfterMisses logs a warning after this many consecutive polls
	// without a usable tunnel interface. 0 disables the warning.
	WarnAfterMisses int `yaml:"warn_after_misses"`
}

// DaemonConfig holds long-running process settings.
type DaemonConfig struct {
	StatusListen string `yaml:"status_listen"`
	LogLevel     string `yaml:"log_level"`
}

// ConnectPollDuration parses the connection-state poll interval.
func (v VPNConfig) ConnectPollDuration() time.Duration {
	return parseDuration(v.ConnectPoll, 2*time.Second)
}

// ConnectTimeoutDuration parses the connect timeout.
func (v VPNConfig) ConnectTimeoutDuration() time.Duration {
	return parseDuration(v.ConnectTimeout, 3*time.Minute)
}

// PollIntervalDuration parses the watchdog poll interval.
func (w WatchdogConfig) PollIntervalDuration() time.Duration {
	return parseDuration(w.PollInterval, 5*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Version: 1,
		VPN: VPNConfig{
			Binary:         "piactl",
			ConnectPoll:    "2s",
			ConnectTimeout: "3m",
		},
		Network: NetworkConfig{
			TunnelPattern: `^(tun|tap|wg|ppp|nordlynx|pia)`,
		},
		DNS: DNSConfig{
			Fallback: "1.1.1.1",
		},
		Watchdog: WatchdogConfig{
			PollInterval:    "5s",
			WarnAfterMisses: 12,
		},
		Daemon: DaemonConfig{
			StatusListen: "127.0.0.1:8037",
			LogLevel:     "info",
		},
	}
}
