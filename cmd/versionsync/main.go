package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rh-ecosystem-edge/versionsync/pkg/config"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/versionsync"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "versionsync",
		Short:        "Versionsync records new OpenShift versions and GPU operator bundle digests",
		SilenceUsage: true,
		RunE:         runUpdate,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to an optional YAML config file")
	flags.String("version-file", "", "Path to the versions document (env VERSION_FILE_PATH)")
	flags.String("tests-file", "", "Path of the test commands output (env TEST_TO_TRIGGER_FILE_PATH)")
	flags.Int("timeout", config.DefaultRequestTimeoutSeconds, "HTTP request timeout in seconds")
	flags.String("write-mode", "atomic", "Document write mode: atomic or in-place")
	flags.Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "update",
			Short: "Synchronize OpenShift versions and the bundle digest, then write test commands",
			Args:  cobra.NoArgs,
			RunE:  runUpdate,
		},
		&cobra.Command{
			Use:   "ocp",
			Short: "Synchronize OpenShift versions and print the resolved versions",
			Args:  cobra.NoArgs,
			RunE:  runOCP,
		},
		&cobra.Command{
			Use:   "bundle-digest [FILE [KEY]]",
			Short: "Synchronize the GPU operator bundle digest",
			Args:  cobra.MaximumNArgs(2),
			RunE:  runBundleDigest,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and the logger. Positional overrides are
// applied before validation.
func setup(cmd *cobra.Command, override func(*config.Config)) (*versionsync.VersionSync, *otelzap.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if override != nil {
		override(cfg)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return nil, logger, err
	}

	vs, err := versionsync.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to create versionsync", zap.Error(err))
		return nil, logger, err
	}
	return vs, logger, nil
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	vs, logger, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	report, err := vs.Run(ctx)
	if err != nil {
		logger.Ctx(ctx).Error("Synchronization failed", zap.Error(err))
		return err
	}
	logger.Ctx(ctx).Info("Synchronization complete", zap.Int("commands", len(report.Commands)))
	return nil
}

func runOCP(cmd *cobra.Command, _ []string) error {
	vs, logger, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	result, err := vs.RunOCP(ctx)
	if err != nil {
		logger.Ctx(ctx).Error("OpenShift synchronization failed", zap.Error(err))
		return err
	}

	out, err := json.MarshalIndent(result.Versions.Strings(), "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func runBundleDigest(cmd *cobra.Command, args []string) error {
	vs, logger, err := setup(cmd, func(cfg *config.Config) {
		if len(args) > 0 {
			cfg.VersionFilePath = args[0]
		}
		if len(args) > 1 {
			cfg.Bundle.Key = args[1]
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	if _, err := vs.RunDigest(ctx); err != nil {
		logger.Ctx(ctx).Error("Bundle digest synchronization failed", zap.Error(err))
		return err
	}
	return nil
}
