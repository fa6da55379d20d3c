// Package digestsync records the content digest of the GPU operator bundle.
package digestsync

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters/registry"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/store"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// NewParams contains parameters for New.
type NewParams struct {
	Registry registry.Client
	// SuppliedToken is a raw GitHub token. When set, no token is requested from the registry.
	SuppliedToken string
	WriteMode     store.WriteMode
	Logger        *otelzap.Logger
}

// Synchronizer fetches the bundle digest and reconciles it into the document.
type Synchronizer struct {
	registry      registry.Client
	suppliedToken string
	writeMode     store.WriteMode
	logger        *otelzap.Logger
}

// New creates a Synchronizer.
func New(params NewParams) *Synchronizer {
	return &Synchronizer{
		registry:      params.Registry,
		suppliedToken: params.SuppliedToken,
		writeMode:     params.WriteMode,
		logger:        params.Logger,
	}
}

// AcquireCredential returns the bearer token for the manifest request. A
// supplied GitHub token is base64 encoded, which is the form ghcr.io accepts
// as a bearer credential; otherwise an anonymous pull token is requested.
func (s *Synchronizer) AcquireCredential(ctx context.Context) (string, error) {
	logger := logging.C(ctx, s.logger)

	if secret := strings.TrimSpace(s.suppliedToken); secret != "" {
		logger.Info("Auth token supplied, skipping token request")
		return base64.StdEncoding.EncodeToString([]byte(secret)), nil
	}

	logger.Info("No auth token supplied, requesting one from the registry")
	token, err := s.registry.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("acquiring registry token: %w", err)
	}
	return token, nil
}

// FetchDigest returns the config digest of the bundle manifest.
func (s *Synchronizer) FetchDigest(ctx context.Context, token string) (digest.Digest, error) {
	d, err := s.registry.ManifestDigest(ctx, token)
	if err != nil {
		return "", fmt.Errorf("fetching bundle manifest: %w", err)
	}
	logging.C(ctx, s.logger).Info("Bundle digest fetched", zap.String("digest", d.String()))
	return d, nil
}

// Synchronize stores the current bundle digest at key in the document at
// documentPath and reports whether the stored value changed. Nothing is
// written unless the digest was fetched successfully and differs.
func (s *Synchronizer) Synchronize(ctx context.Context, documentPath, key string) (bool, error) {
	token, err := s.AcquireCredential(ctx)
	if err != nil {
		return false, err
	}

	d, err := s.FetchDigest(ctx, token)
	if err != nil {
		return false, err
	}

	changed, err := store.New(documentPath, s.writeMode, s.logger).Reconcile(ctx, key, d.String())
	if err != nil {
		return false, fmt.Errorf("updating %s: %w", key, err)
	}

	if !changed {
		logging.C(ctx, s.logger).Info("Bundle digest unchanged", zap.String("key", key))
	}
	return changed, nil
}
