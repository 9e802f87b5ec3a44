package provisioning

import (
	"context"

	"instancectl/internal/config"
)

// NewComputeAPI creates the Compute Engine client described by cfg
func NewComputeAPI(ctx context.Context, cfg config.Config) (ComputeAPI, error) {
	return NewGCPClient(ctx, cfg.CredentialsFile)
}

// NewInstanceSpec returns a spec named name populated from the configured
// defaults. Each call builds its own disk slice.
func NewInstanceSpec(name string, defaults config.InstanceDefaults) InstanceSpec {
	boot := DefaultBootDisk()
	if defaults.DiskType != "" {
		boot.Type = defaults.DiskType
	}
	if defaults.DiskSizeGB > 0 {
		boot.SizeGB = defaults.DiskSizeGB
	}
	if defaults.Image != "" {
		boot.SourceImage = defaults.Image
	}

	machineType := defaults.MachineType
	if machineType == "" {
		machineType = DefaultMachineType
	}

	network := defaults.Network
	if network == "" {
		network = DefaultNetwork
	}

	return InstanceSpec{
		Name:                      name,
		MachineType:               machineType,
		Disks:                     []DiskSpec{boot},
		Network:                   NetworkSpec{Network: network},
		InstanceTerminationAction: DefaultTerminationAction,
		Username:                  defaults.Username,
	}
}
