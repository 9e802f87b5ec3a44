package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instancectl/internal/config"
	"instancectl/internal/logging"
	"instancectl/internal/manager"
	"instancectl/internal/provisioning"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile     string
	flagProject string
	flagZone    string
	flagTimeout time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "instancectl",
	Short: "Manage Compute Engine VM instances",
	Long: `instancectl starts, creates, stops and deletes Compute Engine instances.

Each command submits one request and waits for the resulting operation to
finish. Errors reported by the operation fail the command; warnings are
logged to stderr.

Instances are addressed either by name (project and zone come from the config
file, --project/--zone, CLOUDSDK_CORE_PROJECT/CLOUDSDK_COMPUTE_ZONE or the
metadata server) or as <project> <zone> <name>.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $CONFIG_PATH or ./instancectl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "GCP project ID")
	rootCmd.PersistentFlags().StringVarP(&flagZone, "zone", "z", "", "Compute Engine zone")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "How long to wait for the operation (default 5m)")
}

// loadConfig loads the config file and applies command-line overrides
func loadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
	}

	if flagProject != "" {
		cfg.Project = flagProject
	}
	if flagZone != "" {
		cfg.Zone = flagZone
	}
	if flagTimeout > 0 {
		cfg.OperationTimeoutSeconds = int(flagTimeout.Round(time.Second) / time.Second)
	}
	return cfg
}

// resolveTarget returns project, zone and instance name for args,
// consulting the metadata server only when args name the instance alone
func resolveTarget(ctx context.Context, cfg *config.Config, args []string) (string, string, string) {
	if len(args) == 1 {
		cfg.ResolveFromMetadata(ctx)
	}
	project, zone, name, err := cfg.Target(args)
	if err != nil {
		logging.Logger().Fatal("Invalid instance reference", zap.Error(err))
	}
	return project, zone, name
}

// newInstanceManager connects to the compute API
func newInstanceManager(cmd *cobra.Command, cfg *config.Config) *manager.InstanceManager {
	api, err := provisioning.NewComputeAPI(cmd.Context(), *cfg)
	if err != nil {
		logging.Logger().Fatal("Failed to create compute client", zap.Error(err))
	}
	return manager.NewInstanceManager(api,
		manager.WithOutput(cmd.OutOrStdout()),
		manager.WithTimeout(cfg.OperationTimeout()),
	)
}

// instanceArgs accepts <name> or <project> <zone> <name>
func instanceArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return fmt.Errorf("accepts <name> or <project> <zone> <name>, received %d arg(s)", len(args))
	}
	return nil
}
