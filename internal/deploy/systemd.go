package deploy

import (
	"context"
	"fmt"
	"os"

	"github.com/akosykh/vpngw/internal/platform"
)

// renderSetupUnit produces the oneshot unit that reruns the gateway setup
// sequence once the network is online after boot.
func renderSetupUnit(binary string) string {
	return fmt.Sprintf(`[Unit]
Description=VPN NAT gateway setup
Wants=network-online.target
After=network-online.target

[Service]
Type=oneshot
RemainAfterExit=yes
ExecStart=%s apply --connect

[Install]
WantedBy=multi-user.target
`, binary)
}

// renderWatchUnit produces the long-running watchdog unit. Restart=always is
// the operational safety net; the watchdog itself never exits on its own.
func renderWatchUnit(binary string) string {
	return fmt.Sprintf(`[Unit]
Description=VPN NAT gateway interface watchdog
Wants=vpngw-setup.service
After=network-online.target vpngw-setup.service

[Service]
Type=simple
ExecStart=%s watch
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`, binary)
}

// InstallUnits writes both unit files, reloads systemd, and enables the
// units so they start on boot.
func InstallUnits(ctx context.Context) error {
	units := map[string]string{
		platform.SetupUnitFile: renderSetupUnit(platform.BinaryPath),
		platform.WatchUnitFile: renderWatchUnit(platform.BinaryPath),
	}
	for path, content := range units {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	if err := platform.RunSilent(ctx, "systemctl", "daemon-reload"); err != nil {
		return err
	}
	for _, unit := range []string{platform.SetupUnitName, platform.WatchUnitName} {
		if err := platform.RunSilent(ctx, "systemctl", "enable", unit); err != nil {
			return fmt.Errorf("enable %s: %w", unit, err)
		}
	}
	return nil
}

// StartWatch starts (or restarts) the watchdog unit.
func StartWatch(ctx context.Context) error {
	return platform.RunSilent(ctx, "systemctl", "restart", platform.WatchUnitName)
}

// UnitActive reports whether a systemd unit is currently active.
func UnitActive(ctx context.Context, unit string) bool {
	out, err := platform.Run(ctx, "systemctl", "is-active", unit)
	return err == nil && out == "active"
}

// UninstallUnits stops and disables both units and removes their files.
func UninstallUnits(ctx context.Context) error {
	for _, unit := range []string{platform.WatchUnitName, platform.SetupUnitName} {
		_ = platform.RunSilent(ctx, "systemctl", "disable", "--now", unit)
	}
	for _, path := range []string{platform.WatchUnitFile, platform.SetupUnitFile} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return platform.RunSilent(ctx, "systemctl", "daemon-reload")
}
