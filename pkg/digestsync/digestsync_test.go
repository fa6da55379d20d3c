//go:build unit
// +build unit

package digestsync

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/rh-ecosystem-edge/versionsync/pkg/adapters/registry"
	"github.com/rh-ecosystem-edge/versionsync/pkg/logging"
	"github.com/rh-ecosystem-edge/versionsync/pkg/store"
	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const key = "gpu-main-latest"

type testSynchronizer struct {
	Synchronizer *Synchronizer
	MockRegistry *registry.MockClient
	DocumentPath string
}

func newTestSynchronizer(t *testing.T, suppliedToken, document string) *testSynchronizer {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockRegistry := registry.NewMockClient(ctrl)

	path := filepath.Join(t.TempDir(), "versions.json")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))

	return &testSynchronizer{
		Synchronizer: New(NewParams{
			Registry:      mockRegistry,
			SuppliedToken: suppliedToken,
			WriteMode:     store.WriteAtomic,
			Logger:        logging.Nop(),
		}),
		MockRegistry: mockRegistry,
		DocumentPath: path,
	}
}

func (ts *testSynchronizer) document(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(ts.DocumentPath)
	require.NoError(t, err)
	return string(data)
}

func TestSynchronize_Unchanged(t *testing.T) {
	original := `{"gpu-main-latest":"sha256:aaa"}`
	ts := newTestSynchronizer(t, "", original)

	ts.MockRegistry.EXPECT().Token(gomock.Any()).Return("anon", nil)
	ts.MockRegistry.EXPECT().ManifestDigest(gomock.Any(), "anon").Return(digest.Digest("sha256:aaa"), nil)

	changed, err := ts.Synchronizer.Synchronize(context.Background(), ts.DocumentPath, key)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, original, ts.document(t))
}

func TestSynchronize_Changed(t *testing.T) {
	ts := newTestSynchronizer(t, "", `{"gpu-main-latest":"sha256:aaa"}`)

	ts.MockRegistry.EXPECT().Token(gomock.Any()).Return("anon", nil)
	ts.MockRegistry.EXPECT().ManifestDigest(gomock.Any(), "anon").Return(digest.Digest("sha256:bbb"), nil)

	changed, err := ts.Synchronizer.Synchronize(context.Background(), ts.DocumentPath, key)
	require.NoError(t, err)
	require.True(t, changed)

	doc, err := store.Decode([]byte(ts.document(t)))
	require.NoError(t, err)
	require.Equal(t, store.Document{"gpu-main-latest": "sha256:bbb"}, doc)
}

func TestSynchronize_AuthFailureLeavesDocument(t *testing.T) {
	original := `{"gpu-main-latest":"sha256:aaa"}`
	ts := newTestSynchronizer(t, "", original)

	ts.MockRegistry.EXPECT().Token(gomock.Any()).Return("", &syncerr.StatusError{
		Kind:       syncerr.ErrAuth,
		URL:        "https://ghcr.io/token",
		StatusCode: 401,
		Body:       "unauthorized",
	})

	changed, err := ts.Synchronizer.Synchronize(context.Background(), ts.DocumentPath, key)
	require.ErrorIs(t, err, syncerr.ErrAuth)
	require.False(t, changed)
	require.Equal(t, original, ts.document(t))
}

func TestSynchronize_FetchFailureLeavesDocument(t *testing.T) {
	original := `{"gpu-main-latest":"sha256:aaa"}`
	ts := newTestSynchronizer(t, "", original)

	ts.MockRegistry.EXPECT().Token(gomock.Any()).Return("anon", nil)
	ts.MockRegistry.EXPECT().ManifestDigest(gomock.Any(), "anon").Return(digest.Digest(""), syncerr.ErrParse)

	_, err := ts.Synchronizer.Synchronize(context.Background(), ts.DocumentPath, key)
	require.ErrorIs(t, err, syncerr.ErrParse)
	require.Equal(t, original, ts.document(t))
}

func TestSynchronize_MissingDocument(t *testing.T) {
	ts := newTestSynchronizer(t, "", `{}`)
	require.NoError(t, os.Remove(ts.DocumentPath))

	ts.MockRegistry.EXPECT().Token(gomock.Any()).Return("anon", nil)
	ts.MockRegistry.EXPECT().ManifestDigest(gomock.Any(), "anon").Return(digest.Digest("sha256:aaa"), nil)

	_, err := ts.Synchronizer.Synchronize(context.Background(), ts.DocumentPath, key)
	require.ErrorIs(t, err, syncerr.ErrConfig)
}

func TestAcquireCredential_Supplied(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ts := newTestSynchronizer(t, " ghp_secret\n", `{}`)
	ts.Synchronizer.logger = logging.Wrap(zap.New(core))

	// No Token call is expected on the mock.
	token, err := ts.Synchronizer.AcquireCredential(context.Background())
	require.NoError(t, err)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("ghp_secret")), token)

	for _, entry := range logs.All() {
		require.NotContains(t, entry.Message, "ghp_secret")
		for _, v := range entry.ContextMap() {
			require.NotContains(t, fmt.Sprint(v), "ghp_secret")
		}
	}
}

func TestAcquireCredential_Requested(t *testing.T) {
	ts := newTestSynchronizer(t, "  ", `{}`)
	ts.MockRegistry.EXPECT().Token(gomock.Any()).Return("anon", nil)

	token, err := ts.Synchronizer.AcquireCredential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "anon", token)
}
