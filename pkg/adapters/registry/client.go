//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=client.go -destination=mock.gen.go -package=registry
package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters"
	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
	"golang.org/x/oauth2"
)

// mediaTypeDockerManifest is the schema 2 manifest type still served for older pushes.
const mediaTypeDockerManifest = "application/vnd.docker.distribution.manifest.v2+json"

// Client defines the interface for interacting with the container registry.
type Client interface {
	// Token requests an anonymous bearer token for the configured pull scope.
	Token(ctx context.Context) (string, error)
	// ManifestDigest returns the config digest of the configured manifest.
	ManifestDigest(ctx context.Context, token string) (digest.Digest, error)
}

// NewParams contains parameters for New.
type NewParams struct {
	HTTPClient  *http.Client
	AuthURL     string
	Scope       string
	ManifestURL string
}

type tokenResponse struct {
	Token string `json:"token"`
}

// client implements Client over plain HTTP.
type client struct {
	http        *http.Client
	authURL     string
	scope       string
	manifestURL string
}

// New creates a registry client.
func New(params NewParams) Client {
	return &client{
		http:        params.HTTPClient,
		authURL:     params.AuthURL,
		scope:       params.Scope,
		manifestURL: params.ManifestURL,
	}
}

func (c *client) Token(ctx context.Context) (string, error) {
	u, err := url.Parse(c.authURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid auth URL %q: %v", syncerr.ErrConfig, c.authURL, err)
	}
	q := u.Query()
	q.Set("scope", c.scope)
	u.RawQuery = q.Encode()

	var resp tokenResponse
	err = adapters.GetJSON(ctx, c.http, adapters.GetJSONParams{URL: u.String(), Kind: syncerr.ErrAuth}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: token missing from %s response", syncerr.ErrParse, c.authURL)
	}
	return resp.Token, nil
}

func (c *client) ManifestDigest(ctx context.Context, token string) (digest.Digest, error) {
	authenticated := &http.Client{
		Timeout: c.http.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.http.Transport,
		},
	}

	var manifest ocispec.Manifest
	err := adapters.GetJSON(ctx, authenticated, adapters.GetJSONParams{
		URL:    c.manifestURL,
		Kind:   syncerr.ErrFetch,
		Accept: []string{ocispec.MediaTypeImageManifest, mediaTypeDockerManifest},
	}, &manifest)
	if err != nil {
		return "", err
	}
	if manifest.Config.Digest == "" {
		return "", fmt.Errorf("%w: config.digest missing from manifest %s", syncerr.ErrParse, c.manifestURL)
	}
	return manifest.Config.Digest, nil
}
