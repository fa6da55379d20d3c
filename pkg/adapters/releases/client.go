//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=client.go -destination=mock.gen.go -package=releases
package releases

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters"
	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
)

// Client lists accepted OpenShift releases.
type Client interface {
	AcceptedVersions(ctx context.Context) ([]string, error)
}

// NewParams contains parameters for New.
type NewParams struct {
	HTTPClient *http.Client
	URL        string
	Stream     string
}

// client implements Client against the release controller API.
type client struct {
	http   *http.Client
	url    string
	stream string
}

// New creates a release-stream client.
func New(params NewParams) Client {
	return &client{
		http:   params.HTTPClient,
		url:    params.URL,
		stream: params.Stream,
	}
}

// AcceptedVersions returns the raw version strings of the configured stream, as received.
func (c *client) AcceptedVersions(ctx context.Context) ([]string, error) {
	// The endpoint answers with one array of versions per stream, e.g. {"4-stable": ["4.15.2", ...]}.
	var streams map[string][]string
	if err := adapters.GetJSON(ctx, c.http, adapters.GetJSONParams{URL: c.url, Kind: syncerr.ErrFetch}, &streams); err != nil {
		return nil, err
	}

	versions, ok := streams[c.stream]
	if !ok {
		return nil, fmt.Errorf("%w: stream %q missing from %s", syncerr.ErrParse, c.stream, c.url)
	}
	return versions, nil
}
