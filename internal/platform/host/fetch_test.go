package host

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zicongmei/gke-byo-node/internal/retry"
)

// tarball builds a gzipped tar archive from name→content pairs.
func tarball(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestHTTPFetcher_Get(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("binary-content"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "bin", "kubelet")
	f := &HTTPFetcher{Client: srv.Client()}
	require.NoError(t, f.Get(context.Background(), srv.URL, dest, 0o755))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "binary-content", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestHTTPFetcher_Get_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "kubelet")
	f := &HTTPFetcher{Client: srv.Client()}
	err := f.Get(context.Background(), srv.URL, dest, 0o755)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no partial file may be left behind")
}

func TestHTTPFetcher_Get_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("binary-content"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "kubelet")
	f := &HTTPFetcher{
		Client: srv.Client(),
		Retry:  []retry.Option{retry.WithInitialDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond)},
	}
	require.NoError(t, f.Get(context.Background(), srv.URL, dest, 0o755))
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPFetcher_GetTar(t *testing.T) {
	t.Parallel()

	archive := tarball(t, map[string]string{
		"bridge":   "bridge-plugin",
		"loopback": "loopback-plugin",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	destDir := filepath.Join(t.TempDir(), "cni")
	f := &HTTPFetcher{Client: srv.Client()}
	require.NoError(t, f.GetTar(context.Background(), srv.URL, destDir))

	data, err := os.ReadFile(filepath.Join(destDir, "bridge"))
	require.NoError(t, err)
	assert.Equal(t, "bridge-plugin", string(data))

	data, err = os.ReadFile(filepath.Join(destDir, "loopback"))
	require.NoError(t, err)
	assert.Equal(t, "loopback-plugin", string(data))
}

func TestHTTPFetcher_GetTar_RejectsTraversal(t *testing.T) {
	t.Parallel()

	archive := tarball(t, map[string]string{"../escape": "nope"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	destDir := filepath.Join(t.TempDir(), "cni")
	f := &HTTPFetcher{Client: srv.Client()}
	err := f.GetTar(context.Background(), srv.URL, destDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestSecurePath(t *testing.T) {
	t.Parallel()

	got, err := securePath("/opt/cni/bin", "bridge")
	require.NoError(t, err)
	assert.Equal(t, "/opt/cni/bin/bridge", got)

	_, err = securePath("/opt/cni/bin", "../../etc/passwd")
	assert.Error(t, err)
}

func TestExecRunner_LookPath(t *testing.T) {
	t.Parallel()

	// sh is present on every platform this provisioner targets.
	path, err := ExecRunner{}.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = ExecRunner{}.LookPath("definitely-not-a-real-tool-xyz")
	assert.Error(t, err)
}
