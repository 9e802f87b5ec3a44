package cmd

import (
	"fmt"

	"instancectl/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe <name> | <project> <zone> <name>",
	Short: "Show an instance",
	Args:  instanceArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		project, zone, name := resolveTarget(cmd.Context(), cfg, args)

		instance, err := newInstanceManager(cmd, cfg).Describe(cmd.Context(), project, zone, name)
		if err != nil {
			logging.Logger().Fatal("Failed to describe instance", zap.String("instance", name), zap.Error(err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name: %s\n", instance.Name)
		fmt.Fprintf(out, "ID: %d\n", instance.Id)
		fmt.Fprintf(out, "Status: %s\n", instance.Status)
		fmt.Fprintf(out, "Machine type: %s\n", lastPathSegment(instance.MachineType))
		fmt.Fprintf(out, "Zone: %s\n", lastPathSegment(instance.Zone))
		if instance.Scheduling != nil && instance.Scheduling.ProvisioningModel != "" {
			fmt.Fprintf(out, "Provisioning model: %s\n", instance.Scheduling.ProvisioningModel)
		}
		if instance.DeletionProtection {
			fmt.Fprintln(out, "Deletion protection: enabled")
		}
		for _, nic := range instance.NetworkInterfaces {
			fmt.Fprintf(out, "Interface %s: internal %s", nic.Name, nic.NetworkIP)
			for _, access := range nic.AccessConfigs {
				if access.NatIP != "" {
					fmt.Fprintf(out, ", external %s", access.NatIP)
				}
			}
			fmt.Fprintln(out)
		}
		if len(instance.Disks) > 0 {
			fmt.Fprintln(out, "Disks:")
			for _, disk := range instance.Disks {
				fmt.Fprintf(out, "- %s (%d GB, boot=%v, auto-delete=%v)\n", disk.DeviceName, disk.DiskSizeGb, disk.Boot, disk.AutoDelete)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func lastPathSegment(link string) string {
	for i := len(link) - 1; i >= 0; i-- {
		if link[i] == '/' {
			return link[i+1:]
		}
	}
	return link
}
