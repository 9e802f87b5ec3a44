package manager_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"instancectl/internal/manager"
	"instancectl/internal/provisioning"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/compute/v1"
)

// APICall records a call to MockComputeAPI
type APICall struct {
	Method  string
	Project string
	Zone    string
	Name    string
}

// MockComputeAPI implements provisioning.ComputeAPI in memory.
// Submitted operations come back RUNNING and finish as Completion on the first poll.
type MockComputeAPI struct {
	mu sync.Mutex

	Calls      []APICall
	Inserted   []*compute.Instance
	Instances  map[string]*compute.Instance
	Completion *compute.Operation
	SubmitErr  error
	Hang       bool
}

func NewMockComputeAPI() *MockComputeAPI {
	return &MockComputeAPI{
		Instances:  make(map[string]*compute.Instance),
		Completion: &compute.Operation{Status: "DONE"},
	}
}

func (m *MockComputeAPI) record(method, project, zone, name string) (*compute.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, APICall{Method: method, Project: project, Zone: zone, Name: name})
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	return &compute.Operation{Name: "operation-" + method + "-" + name, Status: "RUNNING"}, nil
}

func (m *MockComputeAPI) methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var methods []string
	for _, c := range m.Calls {
		methods = append(methods, c.Method)
	}
	return methods
}

func (m *MockComputeAPI) GetImageFromFamily(ctx context.Context, project, family string) (*compute.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, APICall{Method: "images.getFromFamily", Project: project, Name: family})
	return &compute.Image{Name: family + "-v20230615", Family: family}, nil
}

func (m *MockComputeAPI) InsertInstance(ctx context.Context, project, zone string, instance *compute.Instance) (*compute.Operation, error) {
	op, err := m.record("insert", project, zone, instance.Name)
	if err == nil {
		m.mu.Lock()
		m.Inserted = append(m.Inserted, instance)
		m.Instances[instance.Name] = &compute.Instance{Name: instance.Name, Status: "RUNNING", MachineType: instance.MachineType}
		m.mu.Unlock()
	}
	return op, err
}

func (m *MockComputeAPI) StartInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error) {
	return m.record("start", project, zone, name)
}

func (m *MockComputeAPI) StopInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error) {
	return m.record("stop", project, zone, name)
}

func (m *MockComputeAPI) DeleteInstance(ctx context.Context, project, zone, name string) (*compute.Operation, error) {
	return m.record("delete", project, zone, name)
}

func (m *MockComputeAPI) GetInstance(ctx context.Context, project, zone, name string) (*compute.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, APICall{Method: "get", Project: project, Zone: zone, Name: name})
	instance, ok := m.Instances[name]
	if !ok {
		return nil, errors.New("instance not found: " + name)
	}
	return instance, nil
}

func (m *MockComputeAPI) WaitOperation(ctx context.Context, op *compute.Operation) (*compute.Operation, error) {
	if m.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	done := *m.Completion
	done.Name = op.Name
	return &done, nil
}

var _ = Describe("InstanceManager", func() {
	var (
		api  *MockComputeAPI
		out  *bytes.Buffer
		logs *observer.ObservedLogs
		mgr  *manager.InstanceManager
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = NewMockComputeAPI()
		out = &bytes.Buffer{}

		var core zapcore.Core
		core, logs = observer.New(zapcore.InfoLevel)
		mgr = manager.NewInstanceManager(api,
			manager.WithOutput(out),
			manager.WithLogger(zap.New(core)),
			manager.WithTimeout(time.Second),
		)
	})

	Context("Start", func() {
		It("should submit the start request and report success", func() {
			Expect(mgr.Start(ctx, "sanguine-line-391106", "us-central1-c", "my-instance")).To(Succeed())

			Expect(api.Calls).To(ConsistOf(APICall{
				Method: "start", Project: "sanguine-line-391106", Zone: "us-central1-c", Name: "my-instance",
			}))
			Expect(out.String()).To(Equal("Instance my-instance started.\n"))
		})

		It("should return the submission error without waiting", func() {
			api.SubmitErr = errors.New("permission denied")

			err := mgr.Start(ctx, "p", "us-central1-c", "my-instance")
			Expect(err).To(MatchError("permission denied"))
			Expect(out.String()).To(BeEmpty())
		})

		It("should fail with an OperationError when the operation reports one", func() {
			api.Completion = &compute.Operation{
				Status:              "DONE",
				HttpErrorStatusCode: 400,
				HttpErrorMessage:    "BAD REQUEST",
				Error: &compute.OperationError{Errors: []*compute.OperationErrorErrors{
					{Code: "UNSUPPORTED_OPERATION", Message: "instance is being deleted"},
				}},
			}

			err := mgr.Start(ctx, "p", "us-central1-c", "my-instance")

			var opErr *provisioning.OperationError
			Expect(errors.As(err, &opErr)).To(BeTrue())
			Expect(opErr.Operation).To(Equal(manager.LabelStart))
			Expect(opErr.Code).To(Equal("UNSUPPORTED_OPERATION"))
			Expect(opErr.ID).To(Equal("operation-start-my-instance"))
			Expect(out.String()).To(BeEmpty())
			Expect(logs.FilterMessage("Error during instance start").Len()).To(Equal(1))
		})
	})

	Context("Stop", func() {
		It("should report success and log warnings without failing", func() {
			api.Completion = &compute.Operation{
				Status:   "DONE",
				Warnings: []*compute.OperationWarnings{{Code: "SINGLE_INSTANCE_PROPERTY_TEMPLATE", Message: "note"}},
			}

			Expect(mgr.Stop(ctx, "p", "us-central1-c", "my-instance")).To(Succeed())
			Expect(out.String()).To(Equal("Instance my-instance stopped.\n"))
			Expect(logs.FilterMessage("Warning during instance stopping").Len()).To(Equal(1))
		})

		It("should time out when the operation never finishes", func() {
			api.Hang = true
			mgr = manager.NewInstanceManager(api,
				manager.WithOutput(out),
				manager.WithLogger(zap.NewNop()),
				manager.WithTimeout(20*time.Millisecond),
			)

			err := mgr.Stop(ctx, "p", "us-central1-c", "my-instance")
			Expect(err).To(MatchError(provisioning.ErrOperationTimeout))
			Expect(out.String()).To(BeEmpty())
		})
	})

	Context("Delete", func() {
		It("should announce the deletion before submitting it", func() {
			Expect(mgr.Delete(ctx, "p", "us-central1-c", "my-instance")).To(Succeed())

			Expect(api.methods()).To(Equal([]string{"delete"}))
			Expect(out.String()).To(Equal("Deleting my-instance from us-central1-c...\nInstance my-instance deleted.\n"))
		})
	})

	Context("Create", func() {
		It("should insert the built instance and return the materialized one", func() {
			spec := provisioning.InstanceSpec{
				Name:        "my-instance",
				MachineType: "e2-medium",
				Network:     provisioning.NetworkSpec{ExternalAccess: true, ExternalIPv4: "1.2.3.4"},
				Spot:        true,
			}

			instance, err := mgr.Create(ctx, "p", "us-central1-c", spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(instance.Name).To(Equal("my-instance"))
			Expect(instance.Status).To(Equal("RUNNING"))

			Expect(api.methods()).To(Equal([]string{"insert", "get"}))
			Expect(api.Inserted).To(HaveLen(1))
			sent := api.Inserted[0]
			Expect(sent.MachineType).To(Equal("zones/us-central1-c/machineTypes/e2-medium"))
			Expect(sent.NetworkInterfaces[0].AccessConfigs[0].NatIP).To(Equal("1.2.3.4"))
			Expect(sent.Scheduling.ProvisioningModel).To(Equal("SPOT"))
			Expect(sent.Scheduling.InstanceTerminationAction).To(Equal("STOP"))

			Expect(out.String()).To(Equal("Creating the my-instance instance in us-central1-c...\nInstance my-instance created.\n"))
		})

		It("should emit exactly one deprecation warning for preemptible instances", func() {
			_, err := mgr.Create(ctx, "p", "us-central1-c", provisioning.InstanceSpec{Name: "legacy", Preemptible: true})
			Expect(err).NotTo(HaveOccurred())

			Expect(api.Inserted[0].Scheduling.Preemptible).To(BeTrue())
			Expect(logs.FilterMessage(provisioning.PreemptibleDeprecation).Len()).To(Equal(1))
		})

		It("should not fetch the instance when creation fails", func() {
			api.Completion = &compute.Operation{
				Status: "DONE",
				Error: &compute.OperationError{Errors: []*compute.OperationErrorErrors{
					{Code: "QUOTA_EXCEEDED", Message: "Quota 'CPUS' exceeded"},
				}},
			}

			instance, err := mgr.Create(ctx, "p", "us-central1-c", provisioning.InstanceSpec{Name: "my-instance"})
			Expect(instance).To(BeNil())

			var opErr *provisioning.OperationError
			Expect(errors.As(err, &opErr)).To(BeTrue())
			Expect(opErr.Operation).To(Equal(manager.LabelCreate))
			Expect(api.methods()).To(Equal([]string{"insert"}))
			Expect(out.String()).To(Equal("Creating the my-instance instance in us-central1-c...\n"))
		})

		It("should reject a spec without a name before calling the service", func() {
			_, err := mgr.Create(ctx, "p", "us-central1-c", provisioning.InstanceSpec{})
			Expect(err).To(HaveOccurred())
			Expect(api.Calls).To(BeEmpty())
		})
	})

	Context("Lookups", func() {
		It("should describe an existing instance", func() {
			api.Instances["my-instance"] = &compute.Instance{Name: "my-instance", Status: "TERMINATED"}

			instance, err := mgr.Describe(ctx, "p", "us-central1-c", "my-instance")
			Expect(err).NotTo(HaveOccurred())
			Expect(instance.Status).To(Equal("TERMINATED"))
		})

		It("should resolve an image family", func() {
			image, err := mgr.ImageFromFamily(ctx, "debian-cloud", "debian-11")
			Expect(err).NotTo(HaveOccurred())
			Expect(image.Family).To(Equal("debian-11"))
		})
	})
})
