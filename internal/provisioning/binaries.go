package provisioning

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

// agentBinaries are the node agent and control client installed from the
// pinned Kubernetes release.
var agentBinaries = []string{"kubelet", "kubectl"}

// AgentBinariesStep force-replaces the agent binaries. Mixed stale and new
// binaries are a worse failure mode than a short service interruption, so
// the previous install is removed unconditionally.
type AgentBinariesStep struct{}

// Name implements Step.
func (s *AgentBinariesStep) Name() string { return "agent-binaries" }

// Check implements Step. Always applies: clean replacement is the point.
func (s *AgentBinariesStep) Check(_ *Context) (bool, error) { return false, nil }

// Apply implements Step.
func (s *AgentBinariesStep) Apply(c *Context) error {
	for _, bin := range agentBinaries {
		dest := filepath.Join(c.Path(config.BinDir), bin)

		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing previous %s: %w", bin, err)
		}

		url := k8sBinaryURL(c.Versions.Kubernetes, bin)
		if err := c.Fetcher.Get(c.Ctx, url, dest, 0o755); err != nil {
			return fmt.Errorf("installing %s %s: %w", bin, c.Versions.Kubernetes, err)
		}
	}
	return nil
}

// Verify implements Step.
func (s *AgentBinariesStep) Verify(c *Context) error {
	for _, bin := range agentBinaries {
		dest := filepath.Join(c.Path(config.BinDir), bin)
		info, err := os.Stat(dest)
		if err != nil {
			return fmt.Errorf("%s missing after install: %w", bin, err)
		}
		if info.Mode().Perm()&0o100 == 0 {
			return fmt.Errorf("%s is not executable", dest)
		}
	}
	return nil
}

func k8sBinaryURL(version, bin string) string {
	return fmt.Sprintf("https://dl.k8s.io/release/v%s/bin/linux/%s/%s", version, runtime.GOARCH, bin)
}
