package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akosykh/vpngw/internal/deploy"
	"github.com/akosykh/vpngw/internal/platform"
)

func newInstallCmd() *cobra.Command {
	var start bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install and enable the systemd units",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := deploy.InstallUnits(ctx); err != nil {
				return err
			}
			fmt.Printf("Installed %s and %s.\n", platform.SetupUnitName, platform.WatchUnitName)

			if start {
				if err := deploy.StartWatch(ctx); err != nil {
					return err
				}
				fmt.Println("Watchdog started.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&start, "start", false, "also start the watchdog unit now")
	return cmd
}
