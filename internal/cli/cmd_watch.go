package cli

import (
	"github.com/spf13/cobra"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/daemon"
	"github.com/akosykh/vpngw/internal/platform"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the interface-change watchdog daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger, logBuf := platform.NewLogger(cfg.Daemon.LogLevel)
			d, err := daemon.New(cfg, logger, logBuf, version)
			if err != nil {
				return err
			}
			return d.Run(cmd.Context())
		},
	}
}
