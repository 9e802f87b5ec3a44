package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/compute/metadata"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultConfigPath is used when neither --config nor CONFIG_PATH is set
	DefaultConfigPath = "instancectl.yaml"

	// DefaultOperationTimeout bounds how long a command waits on its operation
	DefaultOperationTimeout = 300 * time.Second

	// EnvProject is the environment variable that defines the default GCP project
	EnvProject = "CLOUDSDK_CORE_PROJECT"

	// EnvZone is the environment variable that defines the default GCP zone
	EnvZone = "CLOUDSDK_COMPUTE_ZONE"

	// EnvCredentials points at a service account key file
	EnvCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Config contains application configuration
type Config struct {
	// Compute Engine connection parameters
	Project         string `yaml:"project"`
	Zone            string `yaml:"zone"`
	CredentialsFile string `yaml:"credentials_file"`

	// Seconds to wait for an operation before giving up
	OperationTimeoutSeconds int `yaml:"operation_timeout_seconds"`

	// Defaults applied by the create command
	Defaults InstanceDefaults `yaml:"defaults"`
}

// InstanceDefaults contains default VM parameters for new instances
type InstanceDefaults struct {
	MachineType string `yaml:"machine_type"`
	Network     string `yaml:"network"`
	DiskType    string `yaml:"disk_type"`
	DiskSizeGB  int64  `yaml:"disk_size_gb"` // in GB
	Image       string `yaml:"image"`

	// Cloud-config user injected with the SSH key, when a key is given
	Username string `yaml:"username"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		OperationTimeoutSeconds: int(DefaultOperationTimeout / time.Second),
		Defaults: InstanceDefaults{
			MachineType: "n1-standard-1",
			Network:     "global/networks/default",
			DiskType:    "pd-balanced",
			DiskSizeGB:  10,
			Image:       "projects/debian-cloud/global/images/family/debian-11",
			Username:    "instancectl",
		},
	}
}

// OperationTimeout returns the configured wait timeout
func (c *Config) OperationTimeout() time.Duration {
	if c.OperationTimeoutSeconds <= 0 {
		return DefaultOperationTimeout
	}
	return time.Duration(c.OperationTimeoutSeconds) * time.Second
}

// Load loads configuration from the file named by CONFIG_PATH
// (or instancectl.yaml in the working directory)
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a YAML file. A missing file is not an
// error: defaults and environment overrides still apply.
func LoadFile(configPath string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Expand environment variables in string fields
	config.Project = os.ExpandEnv(config.Project)
	config.Zone = os.ExpandEnv(config.Zone)
	config.CredentialsFile = os.ExpandEnv(config.CredentialsFile)
	config.Defaults.Image = os.ExpandEnv(config.Defaults.Image)
	config.Defaults.Network = os.ExpandEnv(config.Defaults.Network)

	// Override with environment variables if set (gcloud conventions)
	if project := os.Getenv(EnvProject); project != "" {
		config.Project = project
	}
	if zone := os.Getenv(EnvZone); zone != "" {
		config.Zone = zone
	}
	if creds := os.Getenv(EnvCredentials); creds != "" && config.CredentialsFile == "" {
		config.CredentialsFile = creds
	}

	if config.OperationTimeoutSeconds < 0 {
		return nil, fmt.Errorf("operation_timeout_seconds must not be negative, got %d", config.OperationTimeoutSeconds)
	}
	if config.Defaults.DiskSizeGB < 0 {
		return nil, fmt.Errorf("defaults.disk_size_gb must not be negative, got %d", config.Defaults.DiskSizeGB)
	}

	return config, nil
}

// ResolveFromMetadata fills project and zone from the GCE metadata server
// when they are still unset and the process runs on Compute Engine.
func (c *Config) ResolveFromMetadata(ctx context.Context) {
	if c.Project != "" && c.Zone != "" {
		return
	}
	if !metadata.OnGCE() {
		return
	}
	if c.Project == "" {
		if project, err := metadata.ProjectIDWithContext(ctx); err == nil {
			c.Project = project
		}
	}
	if c.Zone == "" {
		if zone, err := metadata.ZoneWithContext(ctx); err == nil {
			c.Zone = zone
		}
	}
}

// Target resolves the project, zone and instance name of a command.
// args is either [name] (project and zone from config) or [project, zone, name].
func (c *Config) Target(args []string) (project, zone, name string, err error) {
	switch len(args) {
	case 1:
		project, zone, name = c.Project, c.Zone, args[0]
	case 3:
		project, zone, name = args[0], args[1], args[2]
	default:
		return "", "", "", fmt.Errorf("expected <name> or <project> <zone> <name>, got %d arguments", len(args))
	}

	if project == "" {
		return "", "", "", fmt.Errorf("project is required (set project in config file, --project or %s)", EnvProject)
	}
	if zone == "" {
		return "", "", "", fmt.Errorf("zone is required (set zone in config file, --zone or %s)", EnvZone)
	}
	if name == "" {
		return "", "", "", fmt.Errorf("instance name is required")
	}
	return project, zone, name, nil
}
