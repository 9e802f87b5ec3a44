package provisioning

import (
	"context"

	"google.golang.org/api/compute/v1"
)

// InstanceSpec represents the specification for creating a VM
type InstanceSpec struct {
	Name string

	// Short ("n1-standard-1") or zone-qualified machine type
	MachineType string

	// Attached disks; a default boot disk is built when empty
	Disks []DiskSpec

	Network      NetworkSpec
	Accelerators []AcceleratorSpec

	// Legacy preemptible scheduling; superseded by Spot
	Preemptible bool

	// Spot provisioning with the given termination action ("STOP" when empty)
	Spot                      bool
	InstanceTerminationAction string

	// Custom hostname, left to the service when empty
	Hostname string

	DeletionProtection bool

	// Optional cloud-config user with an authorized SSH key
	Username     string
	SSHPublicKey string
}

// DiskSpec describes one disk created from an image alongside the instance
type DiskSpec struct {
	Type        string
	SizeGB      int64 // in GB
	Boot        bool
	SourceImage string
	AutoDelete  bool
}

// NetworkSpec describes the instance's single network interface
type NetworkSpec struct {
	Network    string
	Subnetwork string
	InternalIP string

	// Attach a one-to-one NAT; ExternalIPv4 pins a reserved address,
	// otherwise the service assigns an ephemeral one
	ExternalAccess bool
	ExternalIPv4   string
}

// AcceleratorSpec requests Count accelerators of Type
type AcceleratorSpec struct {
	Type  string
	Count int64
}

// OperationPoller advances an operation handle towards a terminal state
type OperationPoller interface {
	WaitOperation(ctx context.Context, op *compute.Operation) (*compute.Operation, error)
}

// ComputeAPI is the subset of the Compute Engine API the commands use
type ComputeAPI interface {
	OperationPoller

	GetImageFromFamily(ctx context.Context, project, family string) (*compute.Image, error)
	InsertInstance(ctx context.Context, project, zone string, instance *compute.Instance) (*compute.Operation, error)
	StartInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error)
	StopInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error)
	DeleteInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error)
	GetInstance(ctx context.Context, project, zone, name string) (*compute.Instance, error)
}
