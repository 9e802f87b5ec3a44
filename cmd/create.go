package cmd

import (
	"fmt"
	"os"

	"instancectl/internal/logging"
	"instancectl/internal/provisioning"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	createMachineType        string
	createNetwork            string
	createSubnetwork         string
	createInternalIP         string
	createExternalAccess     bool
	createExternalIPv4       string
	createAccelerators       []string
	createPreemptible        bool
	createSpot               bool
	createTerminationAction  string
	createHostname           string
	createDeletionProtection bool
	createImage              string
	createImageProject       string
	createImageFamily        string
	createDiskType           string
	createDiskSize           int64
	createSSHUser            string
	createSSHKeyFile         string
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <name> | <project> <zone> <name>",
	Short: "Create an instance",
	Long: `Create an instance with one boot disk and one network interface.

Unset flags fall back to the defaults section of the config file. The boot
image is either --image or the newest image of --image-family in
--image-project.

--preemptible is deprecated in favour of --spot. When both are given the
spot settings win.`,
	Args: instanceArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		project, zone, name := resolveTarget(cmd.Context(), cfg, args)
		mgr := newInstanceManager(cmd, cfg)

		spec := provisioning.NewInstanceSpec(name, cfg.Defaults)
		flags := cmd.Flags()

		if flags.Changed("machine-type") {
			spec.MachineType = createMachineType
		}
		if flags.Changed("network") {
			spec.Network.Network = createNetwork
		}
		spec.Network.Subnetwork = createSubnetwork
		spec.Network.InternalIP = createInternalIP
		spec.Network.ExternalAccess = createExternalAccess || createExternalIPv4 != ""
		spec.Network.ExternalIPv4 = createExternalIPv4

		boot := &spec.Disks[0]
		if flags.Changed("disk-type") {
			boot.Type = createDiskType
		}
		if flags.Changed("disk-size") {
			boot.SizeGB = createDiskSize
		}
		switch {
		case createImage != "":
			boot.SourceImage = createImage
		case createImageFamily != "":
			image, err := mgr.ImageFromFamily(cmd.Context(), createImageProject, createImageFamily)
			if err != nil {
				logging.Logger().Fatal("Failed to resolve image family", zap.String("family", createImageFamily), zap.Error(err))
			}
			boot.SourceImage = image.SelfLink
		}

		for _, value := range createAccelerators {
			accelerator, err := provisioning.ParseAccelerator(value)
			if err != nil {
				logging.Logger().Fatal("Invalid accelerator", zap.Error(err))
			}
			spec.Accelerators = append(spec.Accelerators, accelerator)
		}

		spec.Preemptible = createPreemptible
		spec.Spot = createSpot
		if flags.Changed("termination-action") {
			spec.InstanceTerminationAction = createTerminationAction
		}
		spec.Hostname = createHostname
		spec.DeletionProtection = createDeletionProtection

		if createSSHKeyFile != "" {
			key, err := os.ReadFile(createSSHKeyFile)
			if err != nil {
				logging.Logger().Fatal("Failed to read SSH public key", zap.Error(err))
			}
			spec.SSHPublicKey = string(key)
			if createSSHUser != "" {
				spec.Username = createSSHUser
			}
		}

		instance, err := mgr.Create(cmd.Context(), project, zone, spec)
		if err != nil {
			logging.Logger().Fatal("Failed to create instance", zap.String("instance", name), zap.Error(err))
		}

		logging.Logger().Info("Instance ready",
			zap.String("instance", instance.Name),
			zap.Uint64("id", instance.Id),
			zap.String("status", instance.Status),
		)
		for _, nic := range instance.NetworkInterfaces {
			for _, access := range nic.AccessConfigs {
				if access.NatIP != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "External IP: %s\n", access.NatIP)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	flags := createCmd.Flags()
	flags.StringVar(&createMachineType, "machine-type", provisioning.DefaultMachineType, "Machine type, short or zones/<zone>/machineTypes/<type>")
	flags.StringVar(&createNetwork, "network", provisioning.DefaultNetwork, "Network link")
	flags.StringVar(&createSubnetwork, "subnetwork", "", "Subnetwork link")
	flags.StringVar(&createInternalIP, "internal-ip", "", "Internal IPv4 address")
	flags.BoolVar(&createExternalAccess, "external-access", false, "Attach an external NAT address")
	flags.StringVar(&createExternalIPv4, "external-ipv4", "", "Reserved external IPv4 address (implies --external-access)")
	flags.StringSliceVar(&createAccelerators, "accelerator", nil, "Accelerator as type[:count], repeatable")
	flags.BoolVar(&createPreemptible, "preemptible", false, "Create a preemptible instance (deprecated, use --spot)")
	flags.BoolVar(&createSpot, "spot", false, "Create a Spot instance")
	flags.StringVar(&createTerminationAction, "termination-action", provisioning.DefaultTerminationAction, "Spot termination action: STOP or DELETE")
	flags.StringVar(&createHostname, "hostname", "", "Custom hostname")
	flags.BoolVar(&createDeletionProtection, "deletion-protection", false, "Protect the instance from deletion")
	flags.StringVar(&createImage, "image", "", "Boot image link")
	flags.StringVar(&createImageProject, "image-project", "debian-cloud", "Project of --image-family")
	flags.StringVar(&createImageFamily, "image-family", "", "Use the newest image of this family")
	flags.StringVar(&createDiskType, "disk-type", provisioning.DefaultDiskType, "Boot disk type")
	flags.Int64Var(&createDiskSize, "disk-size", provisioning.DefaultDiskSizeGB, "Boot disk size in GB")
	flags.StringVar(&createSSHUser, "ssh-user", "", "User created through cloud-config")
	flags.StringVar(&createSSHKeyFile, "ssh-key-file", "", "Public key authorized for --ssh-user")

	createCmd.MarkFlagsMutuallyExclusive("image", "image-family")
}
