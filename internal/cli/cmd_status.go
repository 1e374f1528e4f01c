package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/deploy"
	"github.com/akosykh/vpngw/internal/netstate"
	"github.com/akosykh/vpngw/internal/platform"
	"github.com/akosykh/vpngw/internal/sysctl"
	"github.com/akosykh/vpngw/internal/vpn"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gateway status and diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Println("=== vpngw status ===")
			fmt.Println()

			printVPNStatus(ctx, cfg)
			fmt.Println()
			printInterfaceStatus(ctx, cfg)
			fmt.Println()
			printHostStatus(ctx)
			fmt.Println()
			printWatchdogStatus(ctx, cfg)

			return nil
		},
	}
}

func printVPNStatus(ctx context.Context, cfg *config.Config) {
	client := vpn.NewClient(cfg.VPN.Binary)
	fmt.Println("VPN client:")
	fmt.Printf("  Binary: %s\n", cfg.VPN.Binary)
	if !client.Installed() {
		fmt.Println("  State:  not installed")
		return
	}
	state, err := client.ConnectionState(ctx)
	if err != nil {
		fmt.Printf("  State:  unknown (%v)\n", err)
		return
	}
	fmt.Printf("  State:  %s\n", state)
}

func printInterfaceStatus(ctx context.Context, cfg *config.Config) {
	fmt.Println("Interfaces:")
	state, err := netstate.New(cfg.Network.TunnelPattern, cfg.Network.EgressInterface)
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}
	tunnel, _ := state.TunnelInterface(ctx)
	egress, _ := state.DefaultEgress(ctx)
	if tunnel == "" {
		tunnel = "(none)"
	}
	if egress == "" {
		egress = "(none)"
	}
	fmt.Printf("  Tunnel: %s\n", tunnel)
	fmt.Printf("  Egress: %s\n", egress)
}

func printHostStatus(ctx context.Context) {
	fmt.Println("Host:")
	if on, err := sysctl.IPForwardEnabled(); err != nil {
		fmt.Printf("  ip_forward: unknown (%v)\n", err)
	} else if on {
		fmt.Println("  ip_forward: enabled")
	} else {
		fmt.Println("  ip_forward: disabled")
	}

	for _, unit := range []string{platform.SetupUnitName, platform.WatchUnitName} {
		state := "inactive"
		if deploy.UnitActive(ctx, unit) {
			state = "active"
		}
		fmt.Printf("  %-22s %s\n", unit+":", state)
	}
}

func printWatchdogStatus(ctx context.Context, cfg *config.Config) {
	fmt.Println("Watchdog:")
	status, err := fetchDaemonStatus(ctx, cfg)
	if err != nil {
		fmt.Printf("  (status API unreachable: %v)\n", err)
		return
	}
	fmt.Printf("  Bound:   %s via %s\n", orNone(status.Watchdog.Tunnel), orNone(status.Watchdog.Egress))
	fmt.Printf("  Polls:   %d (%d rule applies)\n", status.Watchdog.Polls, status.Watchdog.Applies)
	if !status.Watchdog.LastApplied.IsZero() {
		fmt.Printf("  Applied: %s\n", status.Watchdog.LastApplied.Format("2006-01-02 15:04:05"))
	}
	for _, ifc := range status.Interfaces {
		fmt.Printf("  %-8s rx %d bytes, tx %d bytes\n", ifc.Name, ifc.BytesRecv, ifc.BytesSent)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
