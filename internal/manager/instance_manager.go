package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"instancectl/internal/config"
	"instancectl/internal/logging"
	"instancectl/internal/provisioning"

	"go.uber.org/zap"
	"google.golang.org/api/compute/v1"
)

// Operation labels used in diagnostics
const (
	LabelStart  = "instance start"
	LabelCreate = "instance creation"
	LabelStop   = "instance stopping"
	LabelDelete = "instance deletion"
)

// InstanceManager runs instance lifecycle commands against the compute API.
// Each command submits one request and blocks until its operation finishes.
type InstanceManager struct {
	api     provisioning.ComputeAPI
	waiter  *provisioning.Waiter
	logger  *zap.Logger
	out     io.Writer
	timeout time.Duration
}

// Option configures an InstanceManager
type Option func(*InstanceManager)

// WithOutput sets where status lines are printed (stdout by default)
func WithOutput(w io.Writer) Option {
	return func(m *InstanceManager) { m.out = w }
}

// WithLogger sets the diagnostics logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *InstanceManager) { m.logger = logger }
}

// WithTimeout sets how long each command waits for its operation
func WithTimeout(timeout time.Duration) Option {
	return func(m *InstanceManager) { m.timeout = timeout }
}

// WithWaiter replaces the operation waiter
func WithWaiter(w *provisioning.Waiter) Option {
	return func(m *InstanceManager) { m.waiter = w }
}

// NewInstanceManager creates a new InstanceManager
func NewInstanceManager(api provisioning.ComputeAPI, opts ...Option) *InstanceManager {
	m := &InstanceManager{
		api:     api,
		out:     os.Stdout,
		timeout: config.DefaultOperationTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Logger()
	}
	if m.waiter == nil {
		m.waiter = provisioning.NewWaiter(api, m.logger)
	}
	return m
}

// Start starts an instance
func (m *InstanceManager) Start(ctx context.Context, project, zone, name string) error {
	m.logger.Info("Starting instance", zap.String("project", project), zap.String("zone", zone), zap.String("instance", name))

	op, err := m.api.StartInstance(ctx, project, zone, name)
	if err != nil {
		return err
	}
	if _, err := m.waiter.Wait(ctx, op, LabelStart, m.timeout); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Instance %s started.\n", name)
	return nil
}

// Create inserts the instance described by spec and returns it as
// materialized by the service
func (m *InstanceManager) Create(ctx context.Context, project, zone string, spec provisioning.InstanceSpec) (*compute.Instance, error) {
	instance, notices, err := provisioning.BuildInstance(zone, spec)
	if err != nil {
		return nil, err
	}
	for _, notice := range notices {
		m.logger.Warn(notice, zap.String("instance", spec.Name))
	}

	m.logger.Info("Creating instance",
		zap.String("project", project),
		zap.String("zone", zone),
		zap.String("instance", instance.Name),
		zap.String("machine_type", instance.MachineType),
		zap.Int("disks", len(instance.Disks)),
	)
	fmt.Fprintf(m.out, "Creating the %s instance in %s...\n", spec.Name, zone)

	op, err := m.api.InsertInstance(ctx, project, zone, instance)
	if err != nil {
		return nil, err
	}
	if _, err := m.waiter.Wait(ctx, op, LabelCreate, m.timeout); err != nil {
		return nil, err
	}

	fmt.Fprintf(m.out, "Instance %s created.\n", spec.Name)
	return m.api.GetInstance(ctx, project, zone, spec.Name)
}

// Stop stops an instance
func (m *InstanceManager) Stop(ctx context.Context, project, zone, name string) error {
	m.logger.Info("Stopping instance", zap.String("project", project), zap.String("zone", zone), zap.String("instance", name))

	op, err := m.api.StopInstance(ctx, project, zone, name)
	if err != nil {
		return err
	}
	if _, err := m.waiter.Wait(ctx, op, LabelStop, m.timeout); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Instance %s stopped.\n", name)
	return nil
}

// Delete deletes an instance
func (m *InstanceManager) Delete(ctx context.Context, project, zone, name string) error {
	m.logger.Info("Deleting instance", zap.String("project", project), zap.String("zone", zone), zap.String("instance", name))
	fmt.Fprintf(m.out, "Deleting %s from %s...\n", name, zone)

	op, err := m.api.DeleteInstance(ctx, project, zone, name)
	if err != nil {
		return err
	}
	if _, err := m.waiter.Wait(ctx, op, LabelDelete, m.timeout); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Instance %s deleted.\n", name)
	return nil
}

// Describe returns the current description of an instance
func (m *InstanceManager) Describe(ctx context.Context, project, zone, name string) (*compute.Instance, error) {
	return m.api.GetInstance(ctx, project, zone, name)
}

// ImageFromFamily returns the newest image in family
func (m *InstanceManager) ImageFromFamily(ctx context.Context, project, family string) (*compute.Image, error) {
	return m.api.GetImageFromFamily(ctx, project, family)
}
