package cmd

import (
	"instancectl/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <name> | <project> <zone> <name>",
	Short: "Delete an instance",
	Long: `Delete an instance. Disks attached with auto-delete are removed with it;
other disks are left in place.`,
	Args: instanceArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		project, zone, name := resolveTarget(cmd.Context(), cfg, args)

		if err := newInstanceManager(cmd, cfg).Delete(cmd.Context(), project, zone, name); err != nil {
			logging.Logger().Fatal("Failed to delete instance", zap.String("instance", name), zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
