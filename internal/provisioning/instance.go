package provisioning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/compute/v1"
)

const (
	DefaultMachineType       = "n1-standard-1"
	DefaultNetwork           = "global/networks/default"
	DefaultDiskType          = "pd-balanced"
	DefaultDiskSizeGB        = 10
	DefaultSourceImage       = "projects/debian-cloud/global/images/family/debian-11"
	DefaultTerminationAction = "STOP"

	// PreemptibleDeprecation is reported whenever legacy preemptible scheduling is requested
	PreemptibleDeprecation = "Preemptible VMs are being replaced by Spot VMs."
)

var machineTypePattern = regexp.MustCompile(`^zones/[a-z\d\-]+/machineTypes/[a-z\d\-]+$`)

// NormalizeMachineType returns machineType qualified with zone unless it
// already has the form zones/<zone>/machineTypes/<type>
func NormalizeMachineType(zone, machineType string) string {
	if machineTypePattern.MatchString(machineType) {
		return machineType
	}
	return fmt.Sprintf("zones/%s/machineTypes/%s", zone, machineType)
}

// DiskFromImage builds an attached disk initialized from sourceImage.
// Boot and AutoDelete are always sent so that false is not dropped.
func DiskFromImage(diskType string, diskSizeGB int64, boot bool, sourceImage string, autoDelete bool) *compute.AttachedDisk {
	return &compute.AttachedDisk{
		AutoDelete: autoDelete,
		Boot:       boot,
		InitializeParams: &compute.AttachedDiskInitializeParams{
			DiskType:    diskType,
			DiskSizeGb:  diskSizeGB,
			SourceImage: sourceImage,
		},
		ForceSendFields: []string{"AutoDelete", "Boot"},
	}
}

// DefaultBootDisk returns a new auto-deleted boot disk built from the package defaults
func DefaultBootDisk() DiskSpec {
	return DiskSpec{
		Type:        DefaultDiskType,
		SizeGB:      DefaultDiskSizeGB,
		Boot:        true,
		SourceImage: DefaultSourceImage,
		AutoDelete:  true,
	}
}

// ParseAccelerator parses "type" or "type:count" (count defaults to 1)
func ParseAccelerator(value string) (AcceleratorSpec, error) {
	acceleratorType, countStr, found := strings.Cut(value, ":")
	if acceleratorType == "" {
		return AcceleratorSpec{}, fmt.Errorf("invalid accelerator %q: missing type", value)
	}
	spec := AcceleratorSpec{Type: acceleratorType, Count: 1}
	if found {
		count, err := strconv.ParseInt(countStr, 10, 64)
		if err != nil || count < 1 {
			return AcceleratorSpec{}, fmt.Errorf("invalid accelerator count in %q", value)
		}
		spec.Count = count
	}
	return spec, nil
}

// BuildInstance turns spec into the instance resource inserted in zone.
// The returned notices are non-fatal deprecation warnings for the caller.
func BuildInstance(zone string, spec InstanceSpec) (*compute.Instance, []string, error) {
	if spec.Name == "" {
		return nil, nil, fmt.Errorf("instance name is required")
	}

	var notices []string

	machineType := spec.MachineType
	if machineType == "" {
		machineType = DefaultMachineType
	}

	disks := spec.Disks
	if len(disks) == 0 {
		disks = []DiskSpec{DefaultBootDisk()}
	}

	instance := &compute.Instance{
		Name:              spec.Name,
		MachineType:       NormalizeMachineType(zone, machineType),
		Disks:             make([]*compute.AttachedDisk, 0, len(disks)),
		NetworkInterfaces: []*compute.NetworkInterface{networkInterface(spec.Network)},
	}

	for _, d := range disks {
		instance.Disks = append(instance.Disks,
			DiskFromImage(qualifyZonal(zone, "diskTypes", d.Type), d.SizeGB, d.Boot, d.SourceImage, d.AutoDelete))
	}

	for _, a := range spec.Accelerators {
		instance.GuestAccelerators = append(instance.GuestAccelerators, &compute.AcceleratorConfig{
			AcceleratorType:  qualifyZonal(zone, "acceleratorTypes", a.Type),
			AcceleratorCount: a.Count,
		})
	}

	if spec.Preemptible {
		notices = append(notices, PreemptibleDeprecation)
		instance.Scheduling = &compute.Scheduling{
			Preemptible: true,
		}
	}

	// Spot replaces any preemptible scheduling set above
	if spec.Spot {
		action := spec.InstanceTerminationAction
		if action == "" {
			action = DefaultTerminationAction
		}
		instance.Scheduling = &compute.Scheduling{
			ProvisioningModel:         "SPOT",
			InstanceTerminationAction: action,
		}
	}

	if spec.Hostname != "" {
		instance.Hostname = spec.Hostname
	}

	if spec.DeletionProtection {
		instance.DeletionProtection = true
	}

	if spec.SSHPublicKey != "" {
		userData, err := GenerateCloudConfig(spec.Username, spec.SSHPublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate cloud-config: %w", err)
		}
		instance.Metadata = &compute.Metadata{
			Items: []*compute.MetadataItems{
				{
					Key:   "user-data",
					Value: &userData,
				},
			},
		}
	}

	return instance, notices, nil
}

func networkInterface(spec NetworkSpec) *compute.NetworkInterface {
	network := spec.Network
	if network == "" {
		network = DefaultNetwork
	}

	nic := &compute.NetworkInterface{
		Network:    network,
		Subnetwork: spec.Subnetwork,
		NetworkIP:  spec.InternalIP,
	}

	if spec.ExternalAccess {
		access := &compute.AccessConfig{
			Type:        "ONE_TO_ONE_NAT",
			Name:        "External NAT",
			NetworkTier: "PREMIUM",
		}
		if spec.ExternalIPv4 != "" {
			access.NatIP = spec.ExternalIPv4
		}
		nic.AccessConfigs = []*compute.AccessConfig{access}
	}

	return nic
}

// qualifyZonal expands a bare resource name to zones/<zone>/<collection>/<name>;
// anything containing a slash is taken as already qualified
func qualifyZonal(zone, collection, name string) string {
	if name == "" || strings.Contains(name, "/") {
		return name
	}
	return fmt.Sprintf("zones/%s/%s/%s", zone, collection, name)
}
