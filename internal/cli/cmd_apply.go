package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/gateway"
	"github.com/akosykh/vpngw/internal/netfilter"
	"github.com/akosykh/vpngw/internal/netstate"
	"github.com/akosykh/vpngw/internal/platform"
	"github.com/akosykh/vpngw/internal/sysctl"
	"github.com/akosykh/vpngw/internal/vpn"
)

// newApplyCmd detects the current interface binding and applies the gateway
// ruleset once. The boot-time oneshot unit runs this with --connect.
func newApplyCmd() *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply NAT/forwarding rules for the current tunnel interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, _ := platform.NewLogger(cfg.Daemon.LogLevel)

			if connect {
				client := vpn.NewClient(cfg.VPN.Binary)
				if !client.Installed() {
					return fmt.Errorf("VPN client %q not found in PATH", cfg.VPN.Binary)
				}
				if err := client.Connect(ctx); err != nil {
					return err
				}
				if err := client.WaitConnected(ctx, cfg.VPN.ConnectPollDuration(), cfg.VPN.ConnectTimeoutDuration()); err != nil {
					return err
				}
				logger.Info("vpn connected")
			}

			if err := sysctl.EnableIPForward(ctx); err != nil {
				return err
			}

			state, err := netstate.New(cfg.Network.TunnelPattern, cfg.Network.EgressInterface)
			if err != nil {
				return err
			}
			tunnel, err := state.TunnelInterface(ctx)
			if err != nil {
				return err
			}
			egress, err := state.DefaultEgress(ctx)
			if err != nil {
				return err
			}
			b := gateway.Binding{Tunnel: tunnel, Egress: egress}
			if !b.Valid() {
				return fmt.Errorf("could not detect interfaces (tunnel=%q egress=%q)", tunnel, egress)
			}

			fw, err := netfilter.NewIPTables()
			if err != nil {
				return err
			}
			rules := gateway.NewRules(fw, cfg.Network.LANNetwork, platform.ResolvConfFile, cfg.DNS.Fallback, logger)
			if err := rules.Apply(ctx, b); err != nil {
				return err
			}

			fmt.Printf("Rules applied for %s.\n", b)
			return nil
		},
	}

	cmd.Flags().BoolVar(&connect, "connect", false, "connect the VPN client and wait for the tunnel first")
	return cmd
}
