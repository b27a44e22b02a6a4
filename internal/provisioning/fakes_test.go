package provisioning

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

// fakeRunner records commands and returns scripted results.
type fakeRunner struct {
	calls   []string
	outputs map[string]string
	errs    map[string]error
	missing map[string]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]string{},
		errs:    map[string]error{},
		missing: map[string]bool{},
	}
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, cmd)
	return r.outputs[cmd], r.errs[cmd]
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) called(cmd string) bool {
	for _, c := range r.calls {
		if c == cmd {
			return true
		}
	}
	return false
}

// fakeFetcher records requested URLs and materializes fake artifacts.
type fakeFetcher struct {
	gets    []string
	tars    []string
	failURL string

	// tarFiles are written into destDir on GetTar, keyed by relative name.
	tarFiles map[string]string
}

func (f *fakeFetcher) Get(_ context.Context, url, dest string, mode os.FileMode) error {
	f.gets = append(f.gets, url)
	if url == f.failURL {
		return fmt.Errorf("fetching %s: unexpected status 404 Not Found", url)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("fake artifact from "+url), mode)
}

func (f *fakeFetcher) GetTar(_ context.Context, url, destDir string) error {
	f.tars = append(f.tars, url)
	if url == f.failURL {
		return fmt.Errorf("fetching %s: unexpected status 404 Not Found", url)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for name, content := range f.tarFiles {
		path := filepath.Join(destDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// newTestContext builds a Context rooted in a temp directory with fakes.
func newTestContext(t *testing.T) (*Context, *fakeRunner, *fakeFetcher) {
	t.Helper()

	runner := newFakeRunner()
	fetcher := &fakeFetcher{tarFiles: map[string]string{}}

	ctx := &Context{
		Ctx:          context.Background(),
		NodeName:     "ubuntu-worker-01",
		APIServerURL: "https://10.0.0.1:6443",
		CACertB64:    base64.StdEncoding.EncodeToString([]byte("ca-pem")),
		NodeKeyB64:   base64.StdEncoding.EncodeToString([]byte("key-pem")),
		NodeCertB64:  base64.StdEncoding.EncodeToString([]byte("cert-pem")),
		DNSAddress:   "10.96.0.10",
		Versions: config.Versions{
			Kubernetes: "1.28.0",
			Containerd: "1.7.22",
			CNIPlugins: "1.5.1",
		},
		Runner:  runner,
		Fetcher: fetcher,
		Root:    t.TempDir(),
	}
	return ctx, runner, fetcher
}
