package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akosykh/vpngw/internal/deploy"
	"github.com/akosykh/vpngw/internal/netfilter"
	"github.com/akosykh/vpngw/internal/platform"
)

func newUninstallCmd() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the gateway rules, systemd units, and runtime files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// 1. Stop and remove the systemd units.
			fmt.Println("Removing systemd units...")
			if err := deploy.UninstallUnits(ctx); err != nil {
				fmt.Printf("  Warning: %v\n", err)
			}

			// 2. Flush the gateway rules.
			fmt.Println("Flushing NAT/forwarding rules...")
			fw, err := netfilter.NewIPTables()
			if err != nil {
				fmt.Printf("  Warning: %v\n", err)
			} else {
				for _, table := range []string{"nat", "filter"} {
					if err := fw.FlushTable(ctx, table); err != nil {
						fmt.Printf("  Warning: %v\n", err)
					}
				}
			}

			// 3. Remove persisted state.
			fmt.Println("Removing runtime files...")
			_ = os.Remove(platform.RulesFile)
			_ = os.Remove(platform.PidFile)

			if purge {
				fmt.Println("Removing configuration...")
				_ = os.Remove(platform.ConfigFile)
			} else {
				fmt.Printf("Configuration kept at %s (remove with --purge).\n", platform.ConfigFile)
			}

			fmt.Println()
			fmt.Println("vpngw removed. The VPN client itself was left untouched.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "also remove the configuration file")
	return cmd
}
