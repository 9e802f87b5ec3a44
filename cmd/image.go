package cmd

import (
	"fmt"

	"instancectl/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// imageCmd represents the image command
var imageCmd = &cobra.Command{
	Use:   "image <project> <family>",
	Short: "Show the newest image in an image family",
	Long: `Resolve the newest non-deprecated image of a family, e.g.

  instancectl image debian-cloud debian-11`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		image, err := newInstanceManager(cmd, cfg).ImageFromFamily(cmd.Context(), args[0], args[1])
		if err != nil {
			logging.Logger().Fatal("Failed to get image", zap.String("project", args[0]), zap.String("family", args[1]), zap.Error(err))
		}

		link := image.SelfLink
		if link == "" {
			link = fmt.Sprintf("projects/%s/global/images/%s", args[0], image.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
}
