package cmd

import (
	"instancectl/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop <name> | <project> <zone> <name>",
	Short: "Stop a running instance",
	Args:  instanceArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		project, zone, name := resolveTarget(cmd.Context(), cfg, args)

		if err := newInstanceManager(cmd, cfg).Stop(cmd.Context(), project, zone, name); err != nil {
			logging.Logger().Fatal("Failed to stop instance", zap.String("instance", name), zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
