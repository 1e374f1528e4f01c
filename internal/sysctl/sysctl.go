// Package sysctl manages the kernel settings the gateway depends on.
package sysctl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/akosykh/vpngw/internal/platform"
)

const ipForwardKey = "net.ipv4.ip_forward"

// EnableIPForward turns on IPv4 forwarding for the running kernel.
func EnableIPForward(ctx context.Context) error {
	if err := platform.RunSilent(ctx, "sysctl", "-w", ipForwardKey+"=1"); err != nil {
		return fmt.Errorf("enable ip_forward: %w", err)
	}
	return nil
}

// IPForwardEnabled reports whether IPv4 forwarding is currently on.
func IPForwardEnabled() (bool, error) {
	data, err := os.ReadFile("/proc/sys/net/ipv4/ip_forward")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(data)) == "1", nil
}

// PersistIPForward sets net.ipv4.ip_forward=1 in the sysctl configuration
// file so forwarding survives a reboot. An existing assignment is replaced
// in place; otherwise the setting is appended.
func PersistIPForward(path string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	updated := setKey(string(data), ipForwardKey, "1")
	if updated == string(data) {
		return nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// setKey rewrites a key=value assignment in sysctl.conf content. Commented
// assignments are uncommented rather than duplicated.
func setKey(content, key, value string) string {
	want := key + " = " + value
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		stripped := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		k, _, ok := strings.Cut(stripped, "=")
		if !ok || strings.TrimSpace(k) != key {
			continue
		}
		lines[i] = want
		return strings.Join(lines, "\n")
	}

	out := strings.TrimRight(content, "\n")
	if out != "" {
		out += "\n"
	}
	return out + want + "\n"
}
