package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/healthcheck"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run end-to-end health checks on the gateway pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			results := healthcheck.RunChecks(cmd.Context(), cfg)
			allPassed := true
			for _, r := range results {
				if r.Passed {
					printPass(r.Name + ": " + r.Detail)
				} else {
					printFail(r.Name + ": " + r.Detail)
					allPassed = false
				}
			}

			if !allPassed {
				os.Exit(1)
			}
			return nil
		},
	}
}

func printPass(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printFail(msg string) {
	fmt.Printf("  \033[31m✗\033[0m %s\n", msg)
}
