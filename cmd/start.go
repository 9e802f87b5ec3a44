package cmd

import (
	"instancectl/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start <name> | <project> <zone> <name>",
	Short: "Start a stopped instance",
	Args:  instanceArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		project, zone, name := resolveTarget(cmd.Context(), cfg, args)

		if err := newInstanceManager(cmd, cfg).Start(cmd.Context(), project, zone, name); err != nil {
			logging.Logger().Fatal("Failed to start instance", zap.String("instance", name), zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
