package provisioning

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
)

const userAgent = "instancectl"

// GCPClient implements ComputeAPI on top of the Compute Engine REST client
type GCPClient struct {
	service *compute.Service
}

// NewGCPClient creates a client using credentialsFile, or Application
// Default Credentials when it is empty
func NewGCPClient(ctx context.Context, credentialsFile string) (*GCPClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	return newGCPClient(ctx, opts...)
}

func newGCPClient(ctx context.Context, opts ...option.ClientOption) (*GCPClient, error) {
	opts = append([]option.ClientOption{option.WithUserAgent(userAgent)}, opts...)

	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}

	return &GCPClient{service: service}, nil
}

// GetImageFromFamily returns the newest non-deprecated image of family
func (c *GCPClient) GetImageFromFamily(ctx context.Context, project, family string) (*compute.Image, error) {
	image, err := c.service.Images.GetFromFamily(project, family).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get image from family %s/%s: %w", project, family, err)
	}
	return image, nil
}

// InsertInstance submits instance creation. Every mutating call carries a
// fresh request ID so the service can de-duplicate retried submissions.
func (c *GCPClient) InsertInstance(ctx context.Context, project, zone string, instance *compute.Instance) (*compute.Operation, error) {
	op, err := c.service.Instances.Insert(project, zone, instance).RequestId(uuid.NewString()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert instance: %w", err)
	}
	return op, nil
}

// StartInstance starts a stopped instance
func (c *GCPClient) StartInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error) {
	op, err := c.service.Instances.Start(project, zone, name).RequestId(uuid.NewString()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to start instance: %w", err)
	}
	return op, nil
}

// StopInstance stops a running instance
func (c *GCPClient) StopInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error) {
	op, err := c.service.Instances.Stop(project, zone, name).RequestId(uuid.NewString()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to stop instance: %w", err)
	}
	return op, nil
}

// DeleteInstance deletes an instance by name
func (c *GCPClient) DeleteInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error) {
	op, err := c.service.Instances.Delete(project, zone, name).RequestId(uuid.NewString()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to delete instance: %w", err)
	}
	return op, nil
}

// GetInstance returns the current description of an instance
func (c *GCPClient) GetInstance(ctx context.Context, project, zone, name string) (*compute.Instance, error) {
	instance, err := c.service.Instances.Get(project, zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return instance, nil
}

// WaitOperation blocks server-side (up to about two minutes) until op is DONE
// and returns its latest state. The scope is taken from the operation itself.
func (c *GCPClient) WaitOperation(ctx context.Context, op *compute.Operation) (*compute.Operation, error) {
	project, err := operationProject(op.SelfLink)
	if err != nil {
		return nil, err
	}

	switch {
	case op.Zone != "":
		return c.service.ZoneOperations.Wait(project, lastSegment(op.Zone), op.Name).Context(ctx).Do()
	case op.Region != "":
		return c.service.RegionOperations.Wait(project, lastSegment(op.Region), op.Name).Context(ctx).Do()
	default:
		return c.service.GlobalOperations.Wait(project, op.Name).Context(ctx).Do()
	}
}
