package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
)

// UserAgent is sent with every upstream request.
const UserAgent = "versionsync"

// maxBodySize bounds how much of a response is read into memory.
const maxBodySize = 4 << 20

// NewHTTPClient returns a client with a fixed upper bound on every request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// GetJSONParams contains parameters for GetJSON.
type GetJSONParams struct {
	URL string
	// Kind is the error kind reported on a non-success status (ErrFetch or ErrAuth).
	Kind   error
	Accept []string
}

// GetJSON issues a GET request and decodes the JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, params GetJSONParams, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, params.URL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", params.URL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if len(params.Accept) > 0 {
		req.Header.Set("Accept", strings.Join(params.Accept, ", "))
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", params.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", params.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := params.Kind
		if kind == nil {
			kind = syncerr.ErrFetch
		}
		return &syncerr.StatusError{
			Kind:       kind,
			URL:        params.URL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %v", syncerr.ErrParse, params.URL, err)
	}
	return nil
}
