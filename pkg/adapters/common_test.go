//go:build unit
// +build unit

package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"name":"value"}`))
	}))
	defer srv.Close()

	var out map[string]string
	err := GetJSON(context.Background(), NewHTTPClient(time.Second), GetJSONParams{URL: srv.URL}, &out)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"name": "value"}, out)
}

func TestGetJSON_CustomAccept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a/b, c/d", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.Client(), GetJSONParams{URL: srv.URL, Accept: []string{"a/b", "c/d"}}, &out)
	require.NoError(t, err)
}

func TestGetJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.Client(), GetJSONParams{URL: srv.URL, Kind: syncerr.ErrAuth}, &out)
	require.ErrorIs(t, err, syncerr.ErrAuth)

	var statusErr *syncerr.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Equal(t, "nope", statusErr.Body)
}

func TestGetJSON_DefaultKindIsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.Client(), GetJSONParams{URL: srv.URL}, &out)
	require.ErrorIs(t, err, syncerr.ErrFetch)
}

func TestGetJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.Client(), GetJSONParams{URL: srv.URL}, &out)
	require.ErrorIs(t, err, syncerr.ErrParse)
}

func TestGetJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	var out map[string]any
	err := GetJSON(context.Background(), NewHTTPClient(50*time.Millisecond), GetJSONParams{URL: srv.URL}, &out)
	require.Error(t, err)
	require.NotErrorIs(t, err, syncerr.ErrParse)
}
