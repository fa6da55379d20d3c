//go:build unit
// +build unit

package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
  "schemaVersion": 2,
  "mediaType": "application/vnd.oci.image.manifest.v1+json",
  "config": {
    "mediaType": "application/vnd.oci.image.config.v1+json",
    "digest": "sha256:bbb",
    "size": 1018
  },
  "layers": []
}`

func newTestClient(t *testing.T, mux *http.ServeMux) Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(NewParams{
		HTTPClient:  srv.Client(),
		AuthURL:     srv.URL + "/token",
		Scope:       "repository:nvidia/gpu-operator:pull",
		ManifestURL: srv.URL + "/v2/nvidia/gpu-operator/gpu-operator-bundle/manifests/main-latest",
	})
}

func TestToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "repository:nvidia/gpu-operator:pull", r.URL.Query().Get("scope"))
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	})

	token, err := newTestClient(t, mux).Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", token)
}

func TestToken_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errors":[{"code":"UNAUTHORIZED"}]}`, http.StatusUnauthorized)
	})

	_, err := newTestClient(t, mux).Token(context.Background())
	require.ErrorIs(t, err, syncerr.ErrAuth)

	var statusErr *syncerr.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Contains(t, statusErr.Body, "UNAUTHORIZED")
}

func TestToken_MissingField(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"abc"}`))
	})

	_, err := newTestClient(t, mux).Token(context.Background())
	require.ErrorIs(t, err, syncerr.ErrParse)
}

func TestManifestDigest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/nvidia/gpu-operator/gpu-operator-bundle/manifests/main-latest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Accept"), "application/vnd.oci.image.manifest.v1+json")
		_, _ = w.Write([]byte(testManifest))
	})

	d, err := newTestClient(t, mux).ManifestDigest(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, digest.Digest("sha256:bbb"), d)
}

func TestManifestDigest_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		kind   error
	}{
		"forbidden":          {status: http.StatusForbidden, body: `denied`, kind: syncerr.ErrFetch},
		"missing config":     {status: http.StatusOK, body: `{"schemaVersion":2}`, kind: syncerr.ErrParse},
		"missing digest":     {status: http.StatusOK, body: `{"config":{"size":1}}`, kind: syncerr.ErrParse},
		"non-string digest":  {status: http.StatusOK, body: `{"config":{"digest":42}}`, kind: syncerr.ErrParse},
		"malformed manifest": {status: http.StatusOK, body: `<html>`, kind: syncerr.ErrParse},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/v2/nvidia/gpu-operator/gpu-operator-bundle/manifests/main-latest", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := newTestClient(t, mux).ManifestDigest(context.Background(), "abc")
			require.ErrorIs(t, err, tc.kind)
		})
	}
}
