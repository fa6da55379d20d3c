// Package ocpsync records the latest accepted OpenShift version of every minor release.
package ocpsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters/releases"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/store"
	"github.com/rh-ecosystem-edge/versionsync/pkg/versions"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// NewParams contains parameters for New.
type NewParams struct {
	Releases releases.Client
	Resolver *versions.Resolver
	// KeyPrefix is prepended to the minor key to form the document key, e.g. "ocp-4.15".
	KeyPrefix string
	Logger    *otelzap.Logger
}

// Result is the outcome of one synchronization.
type Result struct {
	Versions versions.VersionMap
	// Changed lists the minors whose stored version changed, in version order.
	Changed []string
}

type Synchronizer struct {
	releases  releases.Client
	resolver  *versions.Resolver
	keyPrefix string
	logger    *otelzap.Logger
}

func New(params NewParams) *Synchronizer {
	return &Synchronizer{
		releases:  params.Releases,
		resolver:  params.Resolver,
		keyPrefix: params.KeyPrefix,
		logger:    params.Logger,
	}
}

// Key returns the document key for minor.
func (s *Synchronizer) Key(minor string) string {
	return s.keyPrefix + minor
}

// Resolve fetches the accepted releases and reduces them to one version per minor.
func (s *Synchronizer) Resolve(ctx context.Context) (versions.VersionMap, error) {
	logger := logging.C(ctx, s.logger)

	logger.Info("Listing accepted OpenShift versions")
	raw, err := s.releases.AcceptedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accepted OpenShift versions: %w", err)
	}
	logger.Debug("Received OpenShift versions", zap.Strings("versions", raw))

	resolved, err := s.resolver.Resolve(raw)
	if err != nil {
		return nil, fmt.Errorf("resolving OpenShift versions: %w", err)
	}
	logger.Info("Resolved OpenShift versions", zap.Any("versions", resolved.Strings()))
	return resolved, nil
}

// Values maps every resolved minor to its document key.
func (s *Synchronizer) Values(resolved versions.VersionMap) map[string]string {
	values := make(map[string]string, len(resolved))
	for minor, v := range resolved {
		values[s.Key(minor)] = v.Original()
	}
	return values
}

// ChangedMinors picks the minors of resolved among the changed document keys.
func (s *Synchronizer) ChangedMinors(resolved versions.VersionMap, changedKeys []string) []string {
	changed := make([]string, 0, len(changedKeys))
	for _, key := range changedKeys {
		if !strings.HasPrefix(key, s.keyPrefix) {
			continue
		}
		minor := strings.TrimPrefix(key, s.keyPrefix)
		if _, ok := resolved[minor]; ok {
			changed = append(changed, minor)
		}
	}
	return versions.SortMinors(changed)
}

// Synchronize resolves the versions and stores each under its key in st.
func (s *Synchronizer) Synchronize(ctx context.Context, st *store.Store) (*Result, error) {
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	changedKeys, err := st.Patch(ctx, s.Values(resolved))
	if err != nil {
		return nil, fmt.Errorf("updating OpenShift versions: %w", err)
	}

	return &Result{Versions: resolved, Changed: s.ChangedMinors(resolved, changedKeys)}, nil
}
