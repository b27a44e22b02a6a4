package provisioning

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

// cniVersionStamp records which plugin version a directory holds, making
// re-runs of the step a no-op.
const cniVersionStamp = ".cni-plugins-version"

// CNIPluginsStep installs the pinned network plugin bundle.
type CNIPluginsStep struct{}

// Name implements Step.
func (s *CNIPluginsStep) Name() string { return "cni-plugins" }

// Check implements Step.
func (s *CNIPluginsStep) Check(c *Context) (bool, error) {
	data, err := os.ReadFile(filepath.Join(c.Path(config.CNIBinDir), cniVersionStamp))
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(string(data)) == c.Versions.CNIPlugins, nil
}

// Apply implements Step.
func (s *CNIPluginsStep) Apply(c *Context) error {
	dir := c.Path(config.CNIBinDir)
	version := c.Versions.CNIPlugins

	if err := c.Fetcher.GetTar(c.Ctx, cniDownloadURL(version), dir); err != nil {
		return fmt.Errorf("installing CNI plugins %s: %w", version, err)
	}

	if err := os.WriteFile(filepath.Join(dir, cniVersionStamp), []byte(version+"\n"), 0o644); err != nil {
		return fmt.Errorf("stamping CNI plugin version: %w", err)
	}

	return nil
}

// Verify implements Step.
func (s *CNIPluginsStep) Verify(c *Context) error {
	done, err := s.Check(c)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("CNI plugin directory does not hold version %s after install", c.Versions.CNIPlugins)
	}
	return nil
}

func cniDownloadURL(version string) string {
	return fmt.Sprintf("https://github.com/containernetworking/plugins/releases/download/v%s/cni-plugins-linux-%s-v%s.tgz",
		version, runtime.GOARCH, version)
}
