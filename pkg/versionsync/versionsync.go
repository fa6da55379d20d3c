package versionsync

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters"
	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters/registry"
	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters/releases"
	"github.com/rh-ecosystem-edge/versionsync/pkg/config"
	"github.com/rh-ecosystem-edge/versionsync/pkg/digestsync"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/ocpsync"
	"github.com/rh-ecosystem-edge/versionsync/pkg/store"
	"github.com/rh-ecosystem-edge/versionsync/pkg/triggers"
	"github.com/rh-ecosystem-edge/versionsync/pkg/versions"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// VersionSync runs the OpenShift and bundle digest pipelines against one
// versions document and emits the resulting CI test commands.
type VersionSync struct {
	config *config.Config
	store  *store.Store
	ocp    *ocpsync.Synchronizer
	digest *digestsync.Synchronizer
	logger *otelzap.Logger
}

// Report summarizes a full run.
type Report struct {
	OCP           *ocpsync.Result
	DigestChanged bool
	Commands      []string
}

// New creates a VersionSync from a validated configuration.
func New(cfg *config.Config, logger *otelzap.Logger) (*VersionSync, error) {
	httpClient := adapters.NewHTTPClient(time.Duration(cfg.RequestTimeoutSeconds) * time.Second)

	releasesClient := releases.New(releases.NewParams{
		HTTPClient: httpClient,
		URL:        cfg.OCP.ReleaseStreamURL,
		Stream:     cfg.OCP.Stream,
	})
	registryClient := registry.New(registry.NewParams{
		HTTPClient:  httpClient,
		AuthURL:     cfg.Bundle.AuthURL,
		Scope:       cfg.Bundle.AuthScope,
		ManifestURL: cfg.Bundle.ManifestURL,
	})

	return newWithClients(cfg, releasesClient, registryClient, logger)
}

func newWithClients(
	cfg *config.Config,
	releasesClient releases.Client,
	registryClient registry.Client,
	logger *otelzap.Logger,
) (*VersionSync, error) {
	mode, err := store.ParseWriteMode(cfg.WriteMode)
	if err != nil {
		return nil, err
	}
	resolver, err := versions.NewResolver(cfg.OCP.IgnoredVersionsRegex, logger)
	if err != nil {
		return nil, err
	}

	return &VersionSync{
		config: cfg,
		store:  store.New(cfg.VersionFilePath, mode, logger),
		ocp: ocpsync.New(ocpsync.NewParams{
			Releases:  releasesClient,
			Resolver:  resolver,
			KeyPrefix: cfg.OCP.KeyPrefix,
			Logger:    logger,
		}),
		digest: digestsync.New(digestsync.NewParams{
			Registry:      registryClient,
			SuppliedToken: cfg.Bundle.AuthToken,
			WriteMode:     mode,
			Logger:        logger,
		}),
		logger: logger,
	}, nil
}

// Run fetches both feeds, stores every value in a single document update and
// writes the test commands for whatever changed. A failed fetch aborts before
// the document is touched.
func (vs *VersionSync) Run(ctx context.Context) (*Report, error) {
	logger := logging.C(ctx, vs.logger)
	logger.Info("Ignored OpenShift versions", zap.String("pattern", vs.config.OCP.IgnoredVersionsRegex))

	resolved, err := vs.ocp.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	token, err := vs.digest.AcquireCredential(ctx)
	if err != nil {
		return nil, err
	}
	bundleDigest, err := vs.digest.FetchDigest(ctx, token)
	if err != nil {
		return nil, err
	}

	values := vs.ocp.Values(resolved)
	values[vs.config.Bundle.Key] = bundleDigest.String()

	changedKeys, err := vs.store.Patch(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", vs.store.Path(), err)
	}

	report := &Report{
		OCP:           &ocpsync.Result{Versions: resolved, Changed: vs.ocp.ChangedMinors(resolved, changedKeys)},
		DigestChanged: slices.Contains(changedKeys, vs.config.Bundle.Key),
	}
	logger.Info("Versions synchronized",
		zap.Strings("changed_ocp", report.OCP.Changed),
		zap.Bool("digest_changed", report.DigestChanged))

	changes := triggers.Changes{DigestChanged: report.DigestChanged, OCP: report.OCP.Changed}
	tests, err := triggers.Matrix(ctx, changes, resolved.Minors(), vs.config.Triggers.GPUOperatorVersions, vs.logger)
	if err != nil {
		return nil, fmt.Errorf("building test matrix: %w", err)
	}
	report.Commands = triggers.Commands(tests)

	if vs.config.TestsToTriggerFilePath == "" {
		logger.Debug("No tests file configured, skipping test commands")
		return report, nil
	}
	if err := triggers.Save(vs.config.TestsToTriggerFilePath, report.Commands); err != nil {
		return nil, err
	}
	logger.Info("Test commands written",
		zap.String("path", vs.config.TestsToTriggerFilePath),
		zap.Strings("commands", report.Commands))

	return report, nil
}

// RunOCP synchronizes the OpenShift versions only.
func (vs *VersionSync) RunOCP(ctx context.Context) (*ocpsync.Result, error) {
	result, err := vs.ocp.Synchronize(ctx, vs.store)
	if err != nil {
		return nil, err
	}
	logging.C(ctx, vs.logger).Info("OpenShift versions synchronized", zap.Strings("changed", result.Changed))
	return result, nil
}

// RunDigest synchronizes the bundle digest only.
func (vs *VersionSync) RunDigest(ctx context.Context) (bool, error) {
	changed, err := vs.digest.Synchronize(ctx, vs.store.Path(), vs.config.Bundle.Key)
	if err != nil {
		return false, err
	}
	logging.C(ctx, vs.logger).Info("Bundle digest synchronized",
		zap.String("key", vs.config.Bundle.Key),
		zap.Bool("changed", changed))
	return changed, nil
}
