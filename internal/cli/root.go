package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vpngw",
		Short: "vpngw — NAT gateway routing LAN traffic through a VPN client tunnel",
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newVersionCmd(),
		newSetupCmd(),
		newApplyCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newCheckCmd(),
		newInstallCmd(),
		newUninstallCmd(),
	)

	return root
}

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vpngw version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("vpngw", version)
		},
	}
}
