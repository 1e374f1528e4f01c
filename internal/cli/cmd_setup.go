package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/deploy"
	"github.com/akosykh/vpngw/internal/gateway"
	"github.com/akosykh/vpngw/internal/healthcheck"
	"github.com/akosykh/vpngw/internal/netfilter"
	"github.com/akosykh/vpngw/internal/netstate"
	"github.com/akosykh/vpngw/internal/platform"
	"github.com/akosykh/vpngw/internal/sysctl"
	"github.com/akosykh/vpngw/internal/vpn"
)

// newSetupCmd runs the one-shot gateway setup sequence. Every precondition
// failure is fatal: the sequence either completes or aborts with a non-zero
// exit, leaving recovery to the operator.
func newSetupCmd() *cobra.Command {
	var (
		credentials string
		egress      string
		lanNetwork  string
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure this host as a VPN NAT gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fmt.Println("=== vpngw setup ===")
			fmt.Println()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if credentials != "" {
				cfg.VPN.CredentialsFile = credentials
			}
			if egress != "" {
				cfg.Network.EgressInterface = egress
			}
			if lanNetwork != "" {
				cfg.Network.LANNetwork = lanNetwork
			}

			// 1. Internet connectivity.
			fmt.Println("Checking internet connectivity...")
			if r := healthcheck.CheckConnectivity(ctx); !r.Passed {
				return fmt.Errorf("no internet connectivity: %s", r.Detail)
			}
			fmt.Println("  Online.")

			// 2. Host tool dependencies.
			fmt.Println("Checking dependencies...")
			if missing := deploy.CheckDependencies(); len(missing) > 0 {
				var names []string
				for _, m := range missing {
					names = append(names, m.Binary)
				}
				return fmt.Errorf("missing required binaries: %s", strings.Join(names, ", "))
			}
			fmt.Println("  All required binaries found.")

			// 3. VPN client.
			client := vpn.NewClient(cfg.VPN.Binary)
			fmt.Printf("Checking VPN client (%s)...\n", cfg.VPN.Binary)
			if !client.Installed() {
				return fmt.Errorf("VPN client %q not found in PATH; install it first", cfg.VPN.Binary)
			}
			fmt.Println("  Client installed.")

			// 4. Login. The client keeps a session; a failed login on an
			// already-authenticated client is not fatal.
			if cfg.VPN.CredentialsFile != "" {
				if _, err := os.Stat(cfg.VPN.CredentialsFile); err != nil {
					return fmt.Errorf("credentials file: %w", err)
				}
				fmt.Println("Logging in...")
				if err := client.Login(ctx, cfg.VPN.CredentialsFile); err != nil {
					fmt.Printf("  Warning: %v (already logged in?)\n", err)
				} else {
					fmt.Println("  Logged in.")
				}
			}

			// 5. Connect and wait for the tunnel.
			fmt.Println("Connecting...")
			if err := client.Connect(ctx); err != nil {
				return err
			}
			if err := client.WaitConnected(ctx, cfg.VPN.ConnectPollDuration(), cfg.VPN.ConnectTimeoutDuration()); err != nil {
				return err
			}
			fmt.Println("  Connected.")

			// 6. IP forwarding, now and after reboot.
			fmt.Println("Enabling IP forwarding...")
			if err := sysctl.EnableIPForward(ctx); err != nil {
				return err
			}
			if err := sysctl.PersistIPForward(platform.SysctlConfFile); err != nil {
				return err
			}
			fmt.Println("  Enabled and persisted.")

			// 7. Interface detection.
			state, err := netstate.New(cfg.Network.TunnelPattern, cfg.Network.EgressInterface)
			if err != nil {
				return err
			}
			tunnel, err := state.TunnelInterface(ctx)
			if err != nil {
				return err
			}
			egressIface, err := state.DefaultEgress(ctx)
			if err != nil {
				return err
			}
			b := gateway.Binding{Tunnel: tunnel, Egress: egressIface}
			if !b.Valid() {
				return fmt.Errorf("could not detect interfaces (tunnel=%q egress=%q)", tunnel, egressIface)
			}
			fmt.Printf("Detected interfaces: tunnel=%s egress=%s\n", tunnel, egressIface)

			// 8. NAT/forwarding rules + resolver + persistence.
			fmt.Println("Installing NAT rules...")
			fw, err := netfilter.NewIPTables()
			if err != nil {
				return err
			}
			logger, _ := platform.NewLogger(cfg.Daemon.LogLevel)
			rules := gateway.NewRules(fw, cfg.Network.LANNetwork, platform.ResolvConfFile, cfg.DNS.Fallback, logger)
			if err := rules.Apply(ctx, b); err != nil {
				return err
			}
			fmt.Printf("  Rules installed and saved to %s\n", platform.RulesFile)
			if cfg.DNS.Fallback != "" {
				fmt.Printf("  Resolver pinned to %s\n", cfg.DNS.Fallback)
			}

			// 9. Persist config and register boot units.
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Println("Installing systemd units...")
			if err := deploy.InstallUnits(ctx); err != nil {
				return err
			}
			fmt.Printf("  Installed %s and %s\n", platform.SetupUnitName, platform.WatchUnitName)

			// 10. Start the watchdog.
			fmt.Println("Starting watchdog...")
			if err := deploy.StartWatch(ctx); err != nil {
				fmt.Printf("  Warning: %v\n", err)
				fmt.Printf("  Start manually: systemctl start %s\n", platform.WatchUnitName)
			} else {
				fmt.Println("  Watchdog running.")
			}

			fmt.Println()
			fmt.Println("Setup complete. Point LAN clients' default route at this host.")
			fmt.Println("Check status anytime with: vpngw status")
			return nil
		},
	}

	cmd.Flags().StringVar(&credentials, "credentials", "", "path to the VPN client credentials file")
	cmd.Flags().StringVar(&egress, "egress", "", "pin the LAN egress interface (default: auto-detect)")
	cmd.Flags().StringVar(&lanNetwork, "lan", "", "restrict forwarding to this source CIDR")
	return cmd
}
